package main

import (
	"os"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"

	"github.com/s1500tools/s1500d/internal/cmd"
	"github.com/s1500tools/s1500d/internal/configpaths"
	"github.com/s1500tools/s1500d/internal/log"
)

func main() {
	var cli cmd.CLI
	ctx := kong.Parse(&cli,
		kong.Name("s1500d"),
		kong.Description("Event daemon for the Fujitsu ScanSnap S1500: detects lid open/close, paper presence and button gestures over vendor USB and dispatches them to a handler script."),
		kong.UsageOnError(),
		// Flag defaults may come from s1500d.toml candidates; flags and
		// env override file values.
		kong.Configuration(kongtoml.Loader, configpaths.Candidates(os.Getenv("S1500D_CONFIG"))...),
	)

	// Commands that resolve a more specific level (config mode) rebuild
	// their own logger; this one covers everything before that point.
	logger := log.Setup(os.Getenv("S1500D_LOG_LEVEL"))
	ctx.Bind(logger)

	ctx.FatalIfErrorf(ctx.Run())
}
