package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
	LogFile string `long:"log-file" description:"Path to the record log (overrides storage.log_file)"`
	Journal string `long:"journal" description:"Path to the fetch journal (overrides storage.journal_file)"`
}

// RuleFlags describe ad-hoc extraction rules given on the command line.
type RuleFlags struct {
	Prefix []string `long:"prefix" description:"Pattern preceding the value (repeatable)"`
	Regex  []string `long:"regex" description:"Pattern of the value (repeatable, one per --prefix)"`
	Suffix []string `long:"suffix" description:"Pattern expected after the value, validated only (optional, one per --prefix)"`
	Field  []string `long:"field" description:"Field name per rule (optional, one per --prefix)"`
}

// MineCommand: harvest configured sources, or one ad-hoc URL, into the log.
type MineCommand struct {
	URL    string   `long:"url" description:"Mine this URL with the rules given by --prefix/--regex"`
	Name   string   `long:"name" description:"Source name for an ad-hoc URL" default:"data"`
	Source []string `long:"source" description:"Only harvest these configured sources (repeatable)"`
	DryRun bool     `long:"dry-run" description:"Fetch and mine without appending to the log"`
	RuleFlags

	globals *GlobalFlags
	version string
	deps    *deps // injectable for testing; nil means open defaults
}

// WatchCommand: run mine repeatedly until interrupted.
type WatchCommand struct {
	Interval string   `long:"interval" description:"Time between runs (e.g., 30m, 1h); defaults to watch.interval_minutes"`
	Count    int      `long:"count" description:"Stop after this many runs (0 runs until interrupted)"`
	Source   []string `long:"source" description:"Only harvest these configured sources (repeatable)"`
	DryRun   bool     `long:"dry-run" description:"Fetch and mine without appending to the log"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// ExtractCommand: apply one extraction rule to a URL or file.
type ExtractCommand struct {
	URL    string `long:"url" description:"URL to fetch"`
	File   string `long:"file" description:"Read the page from a file instead of a URL"`
	Prefix string `long:"prefix" description:"Pattern preceding the value (required)"`
	Regex  string `long:"regex" description:"Pattern of the value (required)"`
	Suffix string `long:"suffix" description:"Pattern expected after the value, validated only"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// SeriesCommand: reconstruct the time series named by a query.
type SeriesCommand struct {
	Raw       bool   `long:"raw" description:"Print the samples as recorded, without resampling"`
	Normalize bool   `long:"normalize" description:"Scale values to [0,1]"`
	TimeField string `long:"time-field" description:"Field holding the sample time (defaults to analysis.time_field)"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// CorrelateCommand: correlation matrix of several queries.
type CorrelateCommand struct {
	Lead      []int  `long:"lead" description:"Lead in days applied to the second series (repeatable; defaults to analysis.leads)"`
	Variance  string `long:"variance" description:"Variance divisor: population | sample (defaults to analysis.variance)"`
	TimeField string `long:"time-field" description:"Field holding the sample time (defaults to analysis.time_field)"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// StatsCommand: summary statistics of a query's series.
type StatsCommand struct {
	Variance  string `long:"variance" description:"Variance divisor: population | sample (defaults to analysis.variance)"`
	TimeField string `long:"time-field" description:"Field holding the sample time (defaults to analysis.time_field)"`
	Raw       bool   `long:"raw" description:"Summarize the samples as recorded, without resampling"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// WordsCommand: word histogram of a page.
type WordsCommand struct {
	URL  string `long:"url" description:"URL to fetch"`
	File string `long:"file" description:"Read the page from a file instead of a URL"`
	Top  int    `long:"top" description:"Number of words to show (0 shows all)" default:"20"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// LinksCommand: count links by crawling from a URL.
type LinksCommand struct {
	URL      string `long:"url" description:"Start URL (required)"`
	Name     string `long:"name" description:"Source name used with --append" default:"links"`
	Depth    int    `long:"depth" description:"Maximum link depth to follow" default:"1"`
	MaxPages int    `long:"max-pages" description:"Maximum pages to fetch" default:"50"`
	Append   bool   `long:"append" description:"Append the counts to the record log"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// StatusCommand: show record log and journal statistics.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	deps    *deps
}

// SearchCommand: search the fetch journal.
type SearchCommand struct {
	Since  string `long:"since" description:"Only fetches newer than duration (e.g., 7d, 24h, 2w)" default:"30d"`
	Until  string `long:"until" description:"Only fetches older than duration"`
	Source string `long:"source" description:"Filter by source name"`
	Domain string `long:"domain" description:"Filter by domain"`
	Run    string `long:"run" description:"Filter by run ID"`
	Failed bool   `long:"failed" description:"Only failed fetches"`
	Limit  int    `long:"limit" description:"Maximum results" default:"20"`
	Offset int    `long:"offset" description:"Skip first N results" default:"0"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// ShowCommand: print one journal entry.
type ShowCommand struct {
	ID     string `long:"id" description:"Fetch ID (required)"`
	Format string `long:"format" description:"Output format: md | json" default:"md"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// PruneCommand: delete journal entries older than the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
	deps    *deps
}

// PurgeCommand: delete every journal entry with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	deps    *deps
	in      io.Reader // confirmation input; nil means stdin
}
