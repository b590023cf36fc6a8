package config

// Default paths for local databases
const (
	// DefaultDatabasePath holds admin accounts, settings and sessions.
	DefaultDatabasePath = "./sboapp-admin.db"

	// DefaultStoreRoot is the top-level node every collection lives under.
	DefaultStoreRoot = "SBOAPP"
)

// Store drivers
const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
)
