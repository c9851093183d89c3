// ABOUTME: CLI flag parsing using stdlib flag package
// ABOUTME: Supports --version, --sequential, --json, --log-level

package main

import "flag"

type cliArgs struct {
	version    bool
	sequential bool
	json       bool
	logLevel   string
}

func parseFlags() cliArgs {
	var args cliArgs

	flag.BoolVar(&args.version, "version", false, "Show version and exit")
	flag.BoolVar(&args.sequential, "sequential", false, "Run guard handlers one after another")
	flag.BoolVar(&args.json, "json", false, "Also write the decision as JSON on stdout")
	flag.StringVar(&args.logLevel, "log-level", "", "Diagnostic level on stderr (debug, info, warn, error)")

	flag.Parse()
	return args
}
