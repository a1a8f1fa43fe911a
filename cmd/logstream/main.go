// Command logstream follows and fetches logs of remote task executions.
//
// Subcommands:
//
//	tail   follow one or more executions live over the push channel
//	fetch  retrieve historical logs over the REST endpoints
//
// Run "logstream help" for usage.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Build information, set via -ldflags at release time
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "logstream"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			slog.Error("Panic in main",
				"panic", r,
				"stack", string(buf[:n]),
			)
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Command failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

// run dispatches to the subcommand named by the first argument. Each
// subcommand owns its flag set and parses the remaining arguments itself.
func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("missing subcommand")
	}

	switch args[0] {
	case "tail":
		return runTail(args[1:])
	case "fetch":
		return runFetch(args[1:])
	case "version", "-v", "--version":
		fmt.Printf("%s %s (built %s, %s)\n", appName, Version, BuildTime, runtime.Version())
		return nil
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", args[0])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s - execution log client

Usage:
  %s <subcommand> [flags] [arguments]

Subcommands:
  tail      Follow executions live: logs stream to stdout until the
            execution reaches a terminal status or the channel fails
  fetch     Retrieve historical logs for a finished execution
  version   Print version information
  help      Print this message

Common flags (every subcommand):
  -config string      Configuration file (JSON or YAML)
  -base-url string    Server base URL (overrides config)
  -token string       Access token (overrides config)
  -log-level string   debug, info, warn, error
  -log-format string  text, json

Environment:
  LOGSTREAM_TOKEN       Access token (default token source)
  LOGSTREAM_BASE_URL    Server base URL
  LOGSTREAM_LOG_LEVEL   Log level
  LOGSTREAM_LOG_FORMAT  Log format

Examples:
  %s tail exec-42
  %s tail -output json -relay exec-42 exec-43
  %s fetch -source unified -level ERROR -lines 200 exec-42
  %s fetch -source stderr -lines 50 exec-42

Run "%s <subcommand> -h" for the full flag list of a subcommand.
`, appName, appName, appName, appName, appName, appName, appName)
}
