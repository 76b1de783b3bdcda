package config

const (
	defaultConfigPath    = "/etc/laniakea/spark.json"
	defaultCertsBaseDir  = "/etc/laniakea/keys/curve/"
	defaultHostnameFile  = "/etc/hostname"
	defaultMachineIDFile = "/etc/machine-id"
	defaultWorkspaceRoot = "/var/lib/lkspark/"
	defaultMaxJobs       = 1
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"

	workspacesSubdir = "workspaces"
	jobLogSubdir     = "logs"
	historyFileName  = "history.db"

	// configPathEnv overrides the default document location when Load is given no path.
	configPathEnv = "LKSPARK_CONFIG"
)

// clientNamespace is the UUIDv5 namespace every spark client identity is derived in.
// Changing it changes the identity of every deployed worker.
const clientNamespace = "d44a99a2-0b5d-415b-808a-790ad4684309"
