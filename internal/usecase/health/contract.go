package health

import "context"

// DBPinger checks result store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EngineChecker checks answer engine availability.
type EngineChecker interface {
	HealthCheck(ctx context.Context) error
}
