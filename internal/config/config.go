// Package config loads server settings from layered YAML files over built-in
// defaults. Later files override earlier ones key by key.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "20s"
// as well as bare nanosecond integers.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var asString string
	if err := node.Decode(&asString); err == nil {
		parsed, err := time.ParseDuration(asString)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", asString, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var asInt int64
	if err := node.Decode(&asInt); err != nil {
		return fmt.Errorf("duration must be a string like \"125ms\" or an integer")
	}
	*d = Duration(asInt)
	return nil
}

// TCPConfig describes the primary game listener.
type TCPConfig struct {
	Addr         string   `json:"addr" yaml:"addr" jsonschema:"description=Listen address for the TCP game protocol"`
	IdleTimeout  Duration `json:"idleTimeout" yaml:"idleTimeout" jsonschema:"type=string,description=Connections idle longer than this are torn down"`
	WriteTimeout Duration `json:"writeTimeout" yaml:"writeTimeout" jsonschema:"type=string,description=Per-write socket deadline"`
	MaxLineBytes int      `json:"maxLineBytes" yaml:"maxLineBytes" jsonschema:"description=Longest accepted client line"`
}

// HTTPConfig describes the optional WebSocket bridge.
type HTTPConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" jsonschema:"description=Serve the protocol over WebSocket as well"`
	Addr    string `json:"addr" yaml:"addr" jsonschema:"description=Listen address for the HTTP/WebSocket endpoint"`
	Path    string `json:"path" yaml:"path" jsonschema:"description=URL path of the WebSocket endpoint"`
}

// SimulationConfig tunes the tick loop and session defaults.
type SimulationConfig struct {
	TickInterval        Duration `json:"tickInterval" yaml:"tickInterval" jsonschema:"type=string,description=Fixed simulation period"`
	StartLives          int      `json:"startLives" yaml:"startLives" jsonschema:"description=Lives granted at join"`
	StartRound          int      `json:"startRound" yaml:"startRound" jsonschema:"description=Round new sessions begin at"`
	EnemyBroadcastEvery int      `json:"enemyBroadcastEvery" yaml:"enemyBroadcastEvery" jsonschema:"description=Enemy snapshot cadence in ticks when the session is clean"`
	InputCapacity       int      `json:"inputCapacity" yaml:"inputCapacity" jsonschema:"description=Global staged-input ring capacity"`
	PerPlayerLimit      int      `json:"perPlayerLimit" yaml:"perPlayerLimit" jsonschema:"description=Staged inputs allowed per player per tick"`
}

// LoggingConfig selects sinks and the severity floor.
type LoggingConfig struct {
	Sinks       []string `json:"sinks" yaml:"sinks" jsonschema:"description=Enabled sinks: console memory json"`
	FilePath    string   `json:"filePath" yaml:"filePath" jsonschema:"description=Destination for the json sink"`
	MinSeverity string   `json:"minSeverity" yaml:"minSeverity" jsonschema:"description=Lowest severity routed to sinks"`
	BufferSize  int      `json:"bufferSize" yaml:"bufferSize" jsonschema:"description=Async event queue length"`
}

// TemplateEnemy seeds the admin template store at startup.
type TemplateEnemy struct {
	Kind string `json:"kind" yaml:"kind" jsonschema:"description=RED or BLUE"`
	X    int    `json:"x" yaml:"x"`
	Y    int    `json:"y" yaml:"y"`
}

// TemplateFruit seeds the admin template store at startup.
type TemplateFruit struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Points int `json:"points" yaml:"points"`
}

// WorldConfig optionally replaces the built-in map and seeds templates.
type WorldConfig struct {
	MapRows []string        `json:"mapRows,omitempty" yaml:"mapRows" jsonschema:"description=Level rows bottom-up; empty uses the built-in map"`
	Enemies []TemplateEnemy `json:"enemies,omitempty" yaml:"enemies" jsonschema:"description=Template enemies cloned into every new session"`
	Fruits  []TemplateFruit `json:"fruits,omitempty" yaml:"fruits" jsonschema:"description=Template fruits cloned into every new session"`
}

// Config is the root of the YAML document.
type Config struct {
	TCP        TCPConfig        `json:"tcp" yaml:"tcp"`
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	World      WorldConfig      `json:"world" yaml:"world"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		TCP: TCPConfig{
			Addr:         ":5000",
			IdleTimeout:  Duration(20 * time.Second),
			WriteTimeout: Duration(5 * time.Second),
			MaxLineBytes: 512,
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Addr:    ":5080",
			Path:    "/ws",
		},
		Simulation: SimulationConfig{
			TickInterval:        Duration(125 * time.Millisecond),
			StartLives:          3,
			StartRound:          1,
			EnemyBroadcastEvery: 2,
			InputCapacity:       256,
			PerPlayerLimit:      16,
		},
		Logging: LoggingConfig{
			Sinks:       []string{"console"},
			MinSeverity: "info",
			BufferSize:  256,
		},
	}
}

// Load starts from defaults and merges each file in order. Missing keys keep
// the value from the previous layer; a missing file is an error.
func Load(paths ...string) (Config, error) {
	cfg := Default()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TCP.Addr == "" {
		return fmt.Errorf("tcp.addr must not be empty")
	}
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tickInterval must be positive")
	}
	if c.Simulation.StartLives <= 0 {
		return fmt.Errorf("simulation.startLives must be positive")
	}
	if c.Simulation.InputCapacity <= 0 {
		return fmt.Errorf("simulation.inputCapacity must be positive")
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must not be empty when http.enabled")
	}
	switch c.Logging.MinSeverity {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.minSeverity %q is not one of debug, info, warn, error", c.Logging.MinSeverity)
	}
	return nil
}
