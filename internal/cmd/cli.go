// Package cmd defines the s1500d command tree. Commands are kong structs;
// the configured logger is bound by main and injected into Run methods.
package cmd

// CLI is the root command tree.
//
//	s1500d run                  monitor and log events
//	s1500d run HANDLER          run HANDLER on each raw event (legacy mode)
//	s1500d run -c CONFIG.toml   gesture detection + profile dispatch
//	s1500d doctor               interactive hardware verification
type CLI struct {
	Run    Run    `cmd:"" default:"withargs" help:"Run the event daemon."`
	Doctor Doctor `cmd:"" help:"Interactively verify USB communication and event detection."`
}
