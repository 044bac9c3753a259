package sim

import (
	"vine-and-dine/server/internal/telemetry"
	"vine-and-dine/server/logging"
)

// Deps carries the shared infrastructure dependencies the simulation needs.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
}
