package utils

// Application constants
const (
	// Application name
	AppName = "MemberSphere"

	// API version
	APIVersion = "v1"

	// Default port
	DefaultPort = "8080"

	// Default database host
	DefaultDBHost = "localhost"

	// Default database port
	DefaultDBPort = "5432"

	// Default database name
	DefaultDBName = "membersphere"

	// Default database user
	DefaultDBUser = "postgres"

	// Queue the core worker consumes
	DefaultCoreQueue = "core.queue"

	// Messages in flight per consumer
	DefaultPrefetch = 1

	// Renewal sweep cadence
	DefaultRenewalSchedule = "@every 5m"

	// Number of recent top-ups shown in a wallet summary
	RecentTopUpsLimit = 5

	// Shortest accepted note when an admin rejects a top-up
	MinRejectReasonLength = 3
)
