// Package server ties the simulation to its observers: it owns the world,
// the tick loop, and the registry mapping connections to players and
// spectators.
package server

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"vine-and-dine/server/internal/net/intake"
	"vine-and-dine/server/internal/net/proto"
	"vine-and-dine/server/internal/sim"
	"vine-and-dine/server/logging"
	"vine-and-dine/server/logging/lifecycle"
	"vine-and-dine/server/logging/simulation"
)

// outboundLine pairs a payload with the observers it goes to. Broadcasts are
// composed under the hub lock and written to sockets after release so a slow
// client cannot stall the tick.
type outboundLine struct {
	observers []intake.Observer
	payload   string
}

// Hub is the single synchronization point for world state. The tick goroutine
// takes the lock once per tick; connection goroutines take it per command.
type Hub struct {
	mu    sync.Mutex
	world *sim.World
	loop  *sim.Loop

	playerOf   map[intake.Observer]int
	playerConn map[int]intake.Observer
	spectators map[int][]intake.Observer
	waiting    map[int][]intake.Observer

	publisher logging.Publisher
	deps      sim.Deps

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewHub builds a hub over a freshly constructed world.
func NewHub(tiles *sim.TileMap, templates *sim.TemplateStore, worldCfg sim.WorldConfig, loopCfg sim.LoopConfig, deps sim.Deps, publisher logging.Publisher) *Hub {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	factory := sim.NewDefaultFactory(tiles)
	h := &Hub{
		world:      sim.NewWorld(tiles, factory, templates, worldCfg, deps),
		playerOf:   make(map[intake.Observer]int),
		playerConn: make(map[int]intake.Observer),
		spectators: make(map[int][]intake.Observer),
		waiting:    make(map[int][]intake.Observer),
		publisher:  publisher,
		deps:       deps,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	h.loop = sim.NewLoop(loopCfg, deps, sim.LoopHooks{Advance: h.advance})
	return h
}

// RunSimulation drives the tick loop until Stop is called. Blocks.
func (h *Hub) RunSimulation() {
	defer close(h.done)
	h.loop.Run(h.stop)
}

// Stop halts the tick loop and closes every registered connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done

	h.mu.Lock()
	observers := make([]intake.Observer, 0, len(h.playerOf))
	for obs := range h.playerOf {
		observers = append(observers, obs)
	}
	for _, list := range h.spectators {
		observers = append(observers, list...)
	}
	for _, list := range h.waiting {
		observers = append(observers, list...)
	}
	h.playerOf = make(map[intake.Observer]int)
	h.playerConn = make(map[int]intake.Observer)
	h.spectators = make(map[int][]intake.Observer)
	h.waiting = make(map[int][]intake.Observer)
	h.mu.Unlock()

	for _, obs := range observers {
		obs.SendLine(proto.Bye())
		obs.Close()
	}
}

// Join registers the observer as a player and sends the join payload: JOINED,
// the map, and the initial state/fruit/enemy snapshots. Spectators waiting on
// the assigned id are activated.
func (h *Hub) Join(obs intake.Observer, name string) string {
	h.mu.Lock()
	if _, ok := h.playerOf[obs]; ok {
		h.mu.Unlock()
		return proto.CodeAlreadyJoined
	}

	player := h.world.AddPlayer(name)
	h.playerOf[obs] = player.ID
	h.playerConn[player.ID] = obs

	snapshot := h.joinSnapshotLocked(player)
	outbound := []outboundLine{{observers: []intake.Observer{obs}, payload: proto.Joined(player.ID) + snapshot}}

	// Waiting spectators attach now and get the same view.
	if pending := h.waiting[player.ID]; len(pending) > 0 {
		delete(h.waiting, player.ID)
		h.spectators[player.ID] = append(h.spectators[player.ID], pending...)
		outbound = append(outbound, outboundLine{
			observers: pending,
			payload:   proto.SpectateOK(player.ID) + snapshot,
		})
		for range pending {
			lifecycle.SpectatorAttached(context.Background(), h.publisher, h.world.Tick(),
				logging.EntityRef{Kind: logging.EntityKindConnection},
				logging.PlayerRef(strconv.Itoa(player.ID)),
				lifecycle.SpectatorAttachedPayload{Waited: true})
		}
	}

	lifecycle.PlayerJoined(context.Background(), h.publisher, h.world.Tick(),
		logging.PlayerRef(strconv.Itoa(player.ID)),
		lifecycle.PlayerJoinedPayload{
			Name:    name,
			SpawnX:  player.X,
			SpawnY:  player.Y,
			Enemies: len(h.world.EnemiesOf(player.ID)),
			Fruits:  len(h.world.FruitsOf(player.ID)),
		})
	h.mu.Unlock()

	h.send(outbound)
	return ""
}

// joinSnapshotLocked composes the map plus the full session view for one
// player. Callers hold h.mu.
func (h *Hub) joinSnapshotLocked(player sim.Player) string {
	return proto.MapBlock(h.world.TileMap()) +
		proto.StateLine(h.world.Tick(), player) +
		proto.FruitsBlock(player.ID, h.world.FruitsOf(player.ID)) +
		proto.EnemiesBlock(player.ID, h.world.EnemiesOf(player.ID))
}

// StageInput gates a movement intent and, if legal, enqueues it for the next
// tick. Queue overflow is dropped silently; the gate's rejection reasons are
// returned as ERR codes.
func (h *Hub) StageInput(obs intake.Observer, seq, dx, dy int) string {
	h.mu.Lock()
	id, ok := h.playerOf[obs]
	if !ok {
		h.mu.Unlock()
		return sim.InputRejectNotPlayer
	}
	ev, accepted, reason := h.world.GateInput(id, seq, dx, dy)
	h.mu.Unlock()

	if reason != "" {
		return reason
	}
	if !accepted {
		return ""
	}
	h.loop.Enqueue(ev)
	return ""
}

// Spectate attaches the observer to a player's broadcast set, or parks it on
// the waiting list when the id has no session yet.
func (h *Hub) Spectate(obs intake.Observer, playerID int) string {
	if playerID <= 0 {
		return proto.CodeBadSpectate
	}
	h.mu.Lock()
	if _, ok := h.playerOf[obs]; ok {
		h.mu.Unlock()
		return proto.CodeBadSpectate
	}

	var payload string
	if h.world.HasPlayer(playerID) {
		h.spectators[playerID] = append(h.spectators[playerID], obs)
		player, _ := h.world.PlayerSnapshot(playerID)
		payload = proto.SpectateOK(playerID) + h.joinSnapshotLocked(player)
		lifecycle.SpectatorAttached(context.Background(), h.publisher, h.world.Tick(),
			logging.EntityRef{Kind: logging.EntityKindConnection},
			logging.PlayerRef(strconv.Itoa(playerID)),
			lifecycle.SpectatorAttachedPayload{Waited: false})
	} else {
		h.waiting[playerID] = append(h.waiting[playerID], obs)
		payload = proto.SpectateWait(playerID)
	}
	h.mu.Unlock()

	obs.SendLine(payload)
	return ""
}

// Players returns snapshots of every joined player.
func (h *Hub) Players() []sim.Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.Players()
}

// DropObserver tears down everything the connection was registered for. A
// player drop ends the session and notifies its spectators with END.
func (h *Hub) DropObserver(obs intake.Observer, reason string) {
	h.mu.Lock()
	var outbound []outboundLine
	if id, ok := h.playerOf[obs]; ok {
		delete(h.playerOf, obs)
		delete(h.playerConn, id)
		h.world.RemovePlayer(id)
		if audience := h.spectators[id]; len(audience) > 0 {
			outbound = append(outbound, outboundLine{observers: audience, payload: proto.End(id)})
		}
		delete(h.spectators, id)
		lifecycle.SessionEnded(context.Background(), h.publisher, h.world.Tick(),
			logging.PlayerRef(strconv.Itoa(id)),
			lifecycle.SessionEndedPayload{Reason: reason})
	}
	for id, list := range h.spectators {
		h.spectators[id] = removeObserver(list, obs)
		if len(h.spectators[id]) == 0 {
			delete(h.spectators, id)
		}
	}
	for id, list := range h.waiting {
		h.waiting[id] = removeObserver(list, obs)
		if len(h.waiting[id]) == 0 {
			delete(h.waiting, id)
		}
	}
	h.mu.Unlock()

	h.send(outbound)
}

// advance runs one tick: step the world under the lock, compose broadcast
// lines, publish telemetry, then write to sockets lock-free.
func (h *Hub) advance(_ sim.LoopTickContext, events []sim.InputEvent) {
	h.mu.Lock()
	result := h.world.Step(events)

	outbound := make([]outboundLine, 0, len(result.Players))
	for _, player := range result.Players {
		audience := h.audienceLocked(player.ID)
		if len(audience) == 0 {
			continue
		}
		outbound = append(outbound, outboundLine{
			observers: audience,
			payload:   proto.StateLine(result.Tick, player),
		})
	}
	for _, id := range result.FruitRefresh {
		if audience := h.audienceLocked(id); len(audience) > 0 {
			outbound = append(outbound, outboundLine{
				observers: audience,
				payload:   proto.FruitsBlock(id, h.world.FruitsOf(id)),
			})
		}
	}
	for _, id := range result.EnemyRefresh {
		if audience := h.audienceLocked(id); len(audience) > 0 {
			outbound = append(outbound, outboundLine{
				observers: audience,
				payload:   proto.EnemiesBlock(id, h.world.EnemiesOf(id)),
			})
		}
	}
	h.publishTickEvents(result)
	h.mu.Unlock()

	h.send(outbound)
	if h.deps.Metrics != nil {
		h.deps.Metrics.Store("sim_tick", result.Tick)
	}
}

func (h *Hub) publishTickEvents(result sim.StepResult) {
	ctx := context.Background()
	for _, id := range result.Hits {
		simulation.PlayerHit(ctx, h.publisher, result.Tick, logging.PlayerRef(strconv.Itoa(id)))
	}
	for _, id := range result.GameOvers {
		simulation.GameOver(ctx, h.publisher, result.Tick, logging.PlayerRef(strconv.Itoa(id)))
	}
	for _, id := range result.GoalsReached {
		if player, ok := h.world.PlayerSnapshot(id); ok {
			simulation.RoundAdvanced(ctx, h.publisher, result.Tick, logging.PlayerRef(strconv.Itoa(id)),
				simulation.RoundAdvancedPayload{Round: player.Round, Lives: player.Lives})
		}
	}
	for _, pickup := range result.Pickups {
		simulation.FruitPicked(ctx, h.publisher, result.Tick, logging.PlayerRef(strconv.Itoa(pickup.PlayerID)),
			simulation.FruitPickedPayload{X: pickup.Fruit.X, Y: pickup.Fruit.Y, Points: pickup.Fruit.Points})
	}
	for _, removal := range result.RemovedEnemies {
		simulation.EnemyRemoved(ctx, h.publisher, result.Tick, logging.PlayerRef(strconv.Itoa(removal.PlayerID)),
			simulation.EnemyRemovedPayload{Kind: string(removal.Kind), X: removal.X, Y: removal.Y})
	}
}

// audienceLocked returns the owning connection plus registered spectators.
func (h *Hub) audienceLocked(playerID int) []intake.Observer {
	var audience []intake.Observer
	if conn, ok := h.playerConn[playerID]; ok {
		audience = append(audience, conn)
	}
	audience = append(audience, h.spectators[playerID]...)
	return audience
}

func (h *Hub) send(outbound []outboundLine) {
	for _, line := range outbound {
		for _, obs := range line.observers {
			if err := obs.SendLine(line.payload); err != nil && h.deps.Logger != nil {
				h.deps.Logger.Printf("broadcast write failed: %v", err)
			}
		}
	}
}

// refreshSession pushes fresh fruit and enemy snapshots to a player's
// audience after an admin override.
func (h *Hub) refreshSession(playerID int) {
	h.mu.Lock()
	audience := h.audienceLocked(playerID)
	var payload string
	if len(audience) > 0 {
		payload = proto.FruitsBlock(playerID, h.world.FruitsOf(playerID)) +
			proto.EnemiesBlock(playerID, h.world.EnemiesOf(playerID))
	}
	h.mu.Unlock()

	if payload == "" {
		return
	}
	h.send([]outboundLine{{observers: audience, payload: payload}})
}

func removeObserver(list []intake.Observer, obs intake.Observer) []intake.Observer {
	kept := list[:0]
	for _, candidate := range list {
		if candidate == obs {
			continue
		}
		kept = append(kept, candidate)
	}
	return kept
}

var _ intake.Gateway = (*Hub)(nil)

// Snapshot of hub occupancy for diagnostics.
type HubStats struct {
	Players    int
	Spectators int
	Waiting    int
}

func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	stats := HubStats{Players: len(h.playerConn)}
	for _, list := range h.spectators {
		stats.Spectators += len(list)
	}
	for _, list := range h.waiting {
		stats.Waiting += len(list)
	}
	return stats
}

func (h *Hub) String() string {
	stats := h.Stats()
	return fmt.Sprintf("hub players=%d spectators=%d waiting=%d", stats.Players, stats.Spectators, stats.Waiting)
}
