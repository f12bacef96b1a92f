package app

// Build information populated via -ldflags at build time.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// BuildString formats the build information for logs and -version.
func BuildString() string {
	return BuildVersion + " (" + BuildCommit + ", " + BuildDate + ")"
}
