package main

import (
	"fmt"
	"os"

	"github.com/AhasnaCharumee/BookMate/internal/cli"
	"github.com/AhasnaCharumee/BookMate/internal/config"
	"github.com/AhasnaCharumee/BookMate/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "create-user":
		cmd := cli.NewCreateUserCommand()
		if err := cmd.ParseFlags(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "version":
		fmt.Printf("BookMate %s (%s)\n", Version, Commit)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`BookMate - personal reading tracker

Usage: %s [command] [options]

Commands:
  serve         Start the HTTP server (default)
  create-user   Create a user account
  version       Print version information
  help          Show this help message

Run '%s <command> -h' for command-specific options.
`, os.Args[0], os.Args[0])
}
