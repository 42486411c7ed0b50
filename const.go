package backtest

const (
	// EngineVersion is the current version of the replay engine
	EngineVersion = "v1.0.0"

	// ReportSchemaVersion is the current version of the report schema
	// Increment this when the report format changes in a backward-incompatible way
	ReportSchemaVersion = 1

	// MaxDepth is the number of book levels a tick row may carry per side
	MaxDepth = 10

	defaultArenaCapacity int32 = 1024
)
