package dbfill

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess          = 0  // Parse completed successfully
	ExitGeneralError     = 1  // Unknown or unclassified error
	ExitUsageError       = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic            = 3  // Internal panic (unexpected crash)
	ExitConfigError      = 10 // Invalid configuration or exclusion overrides
	ExitConnectionError  = 11 // Failed to connect to database
	ExitRelationConflict = 15 // A required relation points at an excluded entity type
	ExitRegistryError    = 16 // Schema registry could not be loaded
)

const (
	// DefaultCacheFilename is the file name of the parsed cache when none is configured.
	DefaultCacheFilename = "parsed_cache.json"

	// DefaultConfigFileName is the project configuration file looked up in the working directory.
	DefaultConfigFileName = "dbfill.yaml"

	// WarningPrefix marks report lines about degraded (dropped) relations
	// so tooling can filter them out of regular output.
	WarningPrefix = "[WARNING] "

	// DefaultDatabase is the database introspected when none is given.
	DefaultDatabase = "postgres"
)

// DefaultExcludedGroups are framework bookkeeping groups that are always excluded.
// User overrides are merged with this list, never replace it.
var DefaultExcludedGroups = []GroupID{
	"admin",
	"contenttypes",
	"auth",
	"group_permissions",
	"group",
	"user_groups",
	"user_user_permissions",
	"sessions",
	"messages",
	"staticfiles",
}
