// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses command-line arguments and runs the non-TUI
// subcommands: login, register, logout, and status.
package cli

import "strings"

// Args is the parsed command line.
type Args struct {
	// Command is the subcommand, or "" for the default TUI.
	Command string
	// Username prefills the login/register prompt (-u / --username).
	Username string
	// ConfigPath overrides the config file location (--config).
	ConfigPath string
	// ShowHelp and ShowVersion short-circuit everything else.
	ShowHelp    bool
	ShowVersion bool
}

// Parse reads argv (without the program name). Unknown flags are ignored
// rather than fatal; unknown subcommands surface through Command so Run can
// print usage.
func Parse(argv []string) Args {
	var args Args
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-h" || arg == "--help":
			args.ShowHelp = true
		case arg == "-v" || arg == "--version":
			args.ShowVersion = true
		case arg == "-u" || arg == "--username":
			if i+1 < len(argv) {
				i++
				args.Username = argv[i]
			}
		case strings.HasPrefix(arg, "--username="):
			args.Username = strings.TrimPrefix(arg, "--username=")
		case arg == "--config":
			if i+1 < len(argv) {
				i++
				args.ConfigPath = argv[i]
			}
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-"):
			// Ignore unrecognized flags.
		case args.Command == "":
			args.Command = arg
		}
	}
	if args.Command == "help" {
		args.ShowHelp = true
	}
	if args.Command == "version" {
		args.ShowVersion = true
	}
	return args
}

// Usage is the help text shared by "help" and bad invocations.
const Usage = `chatify - terminal client for the Chatify chat API

Usage:
  chatify              launch the chat TUI
  chatify login        log in and store the session
  chatify register     create a new account
  chatify logout       clear the stored session
  chatify status       show the current session
  chatify version      print the version

Flags:
  -u, --username NAME  prefill the username prompt
      --config PATH    use an alternate config file
  -h, --help           show this help
  -v, --version        print the version
`
