// Generates the JSON schema for the server's YAML configuration, for editor
// completion and CI validation of deployment configs.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"vine-and-dine/server/internal/config"
)

func main() {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: false,
	}
	schema := reflector.Reflect(&config.Config{})
	schema.Title = "vine-and-dine server configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
