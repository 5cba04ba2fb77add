// Command bitcrawl harvests numeric quantities from web pages into an
// append-only JSON log and analyses the resulting time series.
//
// Usage:
//
//	bitcrawl mine                          # harvest every configured source once
//	bitcrawl watch --interval 30m          # harvest on an interval
//	bitcrawl series mtgox.average          # daily resampled series
//	bitcrawl correlate mtgox.average network.difficulty
package main

import (
	"os"

	"github.com/hobson/bitcrawl/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// go-flags already printed the error.
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
