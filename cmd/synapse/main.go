package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/toyz/synapse/internal/cli"
	"github.com/toyz/synapse/pkg/config"
	"github.com/toyz/synapse/pkg/diag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("synapse", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		moduleFlag  = flags.String("module", "", "Custom module path for class identifiers (defaults to go.mod module)")
		formatFlag  = flags.String("format", "text", "Report format: text or yaml")
		verboseFlag = flags.Bool("verbose", config.EnvBool("SYNAPSE_DEBUG", false), "Enable verbose output (also SYNAPSE_DEBUG)")
		quietFlag   = flags.Bool("quiet", false, "Only show warnings, errors and the report")
		helpFlag    = flags.Bool("help", false, "Show help information")
	)

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: synapse [options] <directory-paths...>\n\n")
		fmt.Fprintf(stderr, "Synapse Bean Inspector\n")
		fmt.Fprintf(stderr, "Scans directories for //bean:: directives and prints the compiled bean definitions.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nArguments:\n")
		fmt.Fprintf(stderr, "  directory-paths    One or more directories to scan recursively; './...' is accepted\n")
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  synapse ./...                                  # Inspect the whole module\n")
		fmt.Fprintf(stderr, "  synapse ./internal/services                    # Inspect one tree\n")
		fmt.Fprintf(stderr, "  synapse --module github.com/myorg/myapp ./...  # Override the module path\n")
		fmt.Fprintf(stderr, "  synapse --format yaml ./... > beans.dump.yaml  # Machine readable report\n")
	}

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *helpFlag {
		flags.Usage()
		return 0
	}

	dirs := flags.Args()
	if len(dirs) == 0 {
		fmt.Fprintf(stderr, "Error: At least one directory path is required\n\n")
		flags.Usage()
		return 1
	}

	format := strings.ToLower(*formatFlag)
	if format != "text" && format != "yaml" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", *formatFlag)
		return 1
	}

	level := diag.LevelInfo
	if *quietFlag {
		level = diag.LevelWarn
	} else if *verboseFlag {
		level = diag.LevelDebug
	}
	// diagnostics go to stderr so a yaml report on stdout stays clean
	diagnostics := diag.NewConsole(stderr, level)

	diagnostics.Section("Synapse Bean Inspector")
	if *verboseFlag {
		diagnostics.List("Target directories: %s", strings.Join(dirs, ", "))
		if *moduleFlag != "" {
			diagnostics.List("Custom module: %s", *moduleFlag)
		}
	}

	inspector := cli.NewInspector(diagnostics)
	report, err := inspector.Inspect(ctx, cli.Config{
		Directories: dirs,
		ModuleName:  *moduleFlag,
		Format:      format,
		Verbose:     *verboseFlag,
	})
	if err != nil {
		diagnostics.Notify(diag.LevelError, "inspectionFailed", "error", err)
		return 1
	}

	if format == "yaml" {
		if err := cli.PrintYAML(stdout, report); err != nil {
			diagnostics.Notify(diag.LevelError, "writeFailed", "error", err)
			return 1
		}
		return 0
	}
	cli.PrintText(diag.NewConsole(stdout, diag.LevelInfo), report)
	return 0
}
