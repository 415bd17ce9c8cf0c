package cli

// Config holds the configuration for an inspection run
type Config struct {
	// Directories is the list of directories to scan for directives.
	// A trailing "/..." is accepted and ignored; directories are always walked recursively.
	Directories []string

	// ModuleName overrides the module path read from go.mod
	ModuleName string

	// Format selects the report format: "text" or "yaml"
	Format string

	// Verbose enables debug diagnostics
	Verbose bool
}
