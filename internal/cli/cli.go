package cli

import (
	"errors"
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Mine      *MineCommand
	Watch     *WatchCommand
	Extract   *ExtractCommand
	Series    *SeriesCommand
	Correlate *CorrelateCommand
	Stats     *StatsCommand
	Words     *WordsCommand
	Links     *LinksCommand
	Status    *StatusCommand
	Search    *SearchCommand
	Show      *ShowCommand
	Prune     *PruneCommand
	Purge     *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "bitcrawl"
	parser.LongDescription = "Harvest numeric quantities from web pages into an append-only log, then resample and correlate them."

	cmds := &commands{
		Mine:      &MineCommand{globals: &globals, version: version},
		Watch:     &WatchCommand{globals: &globals, version: version},
		Extract:   &ExtractCommand{globals: &globals, version: version},
		Series:    &SeriesCommand{globals: &globals, version: version},
		Correlate: &CorrelateCommand{globals: &globals, version: version},
		Stats:     &StatsCommand{globals: &globals, version: version},
		Words:     &WordsCommand{globals: &globals, version: version},
		Links:     &LinksCommand{globals: &globals, version: version},
		Status:    &StatusCommand{globals: &globals, version: version},
		Search:    &SearchCommand{globals: &globals, version: version},
		Show:      &ShowCommand{globals: &globals, version: version},
		Prune:     &PruneCommand{globals: &globals, version: version},
		Purge:     &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("mine", "Harvest sources into the record log", "Fetch every configured source (or one ad-hoc --url), extract its values and append one record to the log.", cmds.Mine)
	parser.AddCommand("watch", "Mine on an interval", "Run mine repeatedly on an interval until interrupted.", cmds.Watch)
	parser.AddCommand("extract", "Apply one extraction rule", "Apply one prefix/regex rule to a URL or file and print the value.", cmds.Extract)
	parser.AddCommand("series", "Print a resampled time series", "Reconstruct the series named by a query such as \"mtgox.average date:2012-04-01 date:2012-04-15\".", cmds.Series)
	parser.AddCommand("correlate", "Correlate several series", "Align two or more queries on shared days and print their lag-correlation matrices.", cmds.Correlate)
	parser.AddCommand("stats", "Summarize a series", "Print count, mean, variance, standard deviation and range of a query's series.", cmds.Stats)
	parser.AddCommand("words", "Word histogram of a page", "Count the visible words of a page, most frequent first.", cmds.Words)
	parser.AddCommand("links", "Crawl and count links", "Crawl from a URL and count the distinct links found.", cmds.Links)
	parser.AddCommand("status", "Show log and journal statistics", "Show record log size, source counts and fetch journal statistics.", cmds.Status)
	parser.AddCommand("search", "Search the fetch journal", "Search journal fetches by URL substring, with optional filters.", cmds.Search)
	parser.AddCommand("show", "Print one journal fetch", "Print the details of a specific journal fetch.", cmds.Show)
	parser.AddCommand("prune", "Apply journal retention", "Delete journal fetches older than the retention period.", cmds.Prune)
	parser.AddCommand("purge", "Delete the whole fetch journal", "Delete every journal run and fetch. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the bitcrawl CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	if wantsVersion(args) {
		fmt.Printf("bitcrawl %s\n", version)
		return nil
	}

	parser, _, _ := buildParser(version)
	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	var flagsErr *goflags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
		return nil
	}
	return err
}

// wantsVersion reports whether --version appears before any "--".
// go-flags requires a subcommand, so it is handled before parsing.
func wantsVersion(args []string) bool {
	if args == nil {
		args = os.Args[1:]
	}
	for _, arg := range args {
		switch arg {
		case "--version":
			return true
		case "--":
			return false
		}
	}
	return false
}
