package version

// Name is the service name used for telemetry and logging.
const Name = "flowstated"

// Version is stamped at build time via -ldflags.
var Version = "dev"
