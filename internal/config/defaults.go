package config

import (
	"github.com/hobson/bitcrawl/internal/extract"
	"github.com/hobson/bitcrawl/internal/logging"
	"github.com/hobson/bitcrawl/internal/record"
	"github.com/hobson/bitcrawl/internal/stats"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:         "~/.config/bitcrawl",
			LogFile:     "bitcrawl_historical_data.json",
			JournalFile: "journal.db",
		},
		Fetch: FetchConfig{
			TimeoutSeconds:    30,
			Retries:           2,
			RetryWaitMillis:   1000,
			UserAgent:         "bitcrawl/1.0 (+https://github.com/hobson/bitcrawl)",
			MaxBytes:          8 << 20,
			MaxRedirects:      10,
			RequestsPerSecond: 2,
			Burst:             4,
			Concurrency:       4,
		},
		Analysis: AnalysisConfig{
			Variance:  stats.Population.String(),
			TimeField: record.KeyDatetime,
			Leads:     []int{0, 1, 7},
		},
		Retention: RetentionConfig{
			JournalDays: 90,
		},
		Watch: WatchConfig{
			IntervalMinutes: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
		Crawl: CrawlConfig{
			DenyHosts: DefaultDenyHosts(),
		},
		Sources:   DefaultSources(),
		Endpoints: DefaultEndpoints(),
		Crawls:    DefaultCrawls(),
	}
}

// DefaultSources returns the pages mined when the config names none.
func DefaultSources() map[string]SourceConfig {
	visits := extract.Named(extract.Field{Name: "visits", Rule: extract.Rule{
		Prefix: `has\sbeen\saccessed\s`,
		Value:  `([0-9]{1,3}[,]?){1,4}`,
	}})

	return map[string]SourceConfig{
		"mtgox": {
			URL: "https://mtgox.com",
			Fields: extract.Named(
				extract.Field{Name: "average", Rule: extract.Rule{Prefix: `Weighted\s*Avg\s*:\s*<span>`, Value: `\$[0-9]{1,2}[.][0-9]{3,6}`}},
				extract.Field{Name: "last", Rule: extract.Rule{Prefix: `Last\s*price\s*:\s*<span>`, Value: `\$[0-9]{1,2}[.][0-9]{3,6}`}},
				extract.Field{Name: "high", Rule: extract.Rule{Prefix: `High\s*:\s*<span>`, Value: `\$[0-9]{1,2}[.][0-9]{3,6}`}},
				extract.Field{Name: "low", Rule: extract.Rule{Prefix: `Low\s*:\s*<span>`, Value: `\$[0-9]{1,2}[.][0-9]{3,6}`}},
				extract.Field{Name: "volume", Rule: extract.Rule{Prefix: `Volume\s*:\s*<span>`, Value: `[0-9,]{1,9}`}},
			),
		},
		"network": {
			URL: "http://bitcoincharts.com/about/markets-api/",
			Fields: extract.Named(
				extract.Field{Name: "blocks", Rule: extract.Rule{Prefix: `<td class="label">Blocks</td><td>`, Value: `[0-9]{1,9}`}},
				extract.Field{Name: "total_btc", Rule: extract.Rule{Prefix: `<td class="label">Total BTC</td><td>`, Value: `[0-9]{0,2}[.][0-9]{1,4}[TGMKkBb]`}},
				extract.Field{Name: "difficulty", Rule: extract.Rule{Prefix: `<td class="label">Difficulty</td><td>`, Value: `[0-9]{1,10}`}},
				extract.Field{Name: "hash_rate", Rule: extract.Rule{Prefix: `<td class="label">Network total</td><td>`, Value: `[0-9]{0,2}[.][0-9]{1,4}`}},
				extract.Field{Name: "block_rate", Rule: extract.Rule{Prefix: `<td class="label">Blocks/hour</td><td>`, Value: `[0-9]{0,3}[.][0-9]{1,4}`}},
			),
		},
		"cointron": {
			URL: "http://coinotron.com/coinotron/AccountServlet?action=home",
			Fields: extract.Named(
				extract.Field{Name: "hash_rate", Rule: extract.Rule{Prefix: `<tr.*?>\s*<td.*?>\s*BTC\s*</td>\s*<td.*?>\s*`, Value: `[0-9]{1,3}[.][0-9]{1,4}\s*[TMG]H`, Suffix: `</td>`}},
				extract.Field{Name: "hash_rate_LTC", Rule: extract.Rule{Prefix: `<tr.*?>\s*<td.*?>\s*LTC\s*</td>\s*<td.*?>\s*`, Value: `[0-9]{1,3}[.][0-9]{1,4}\s*[TMG]H`, Suffix: `</td>`}},
			),
		},
		"trade":   {URL: "https://en.bitcoin.it/wiki/Trade", Fields: visits},
		"shop":    {URL: "https://en.bitcoin.it/wiki/Real_world_shops", Fields: visits},
		"bitcoin": {URL: "https://en.bitcoin.it/wiki/Main_Page", Fields: visits},
	}
}

// DefaultEndpoints returns the REST JSON sources fetched by default.
func DefaultEndpoints() map[string]EndpointConfig {
	return map[string]EndpointConfig{
		"bitfloor": {URL: "https://api.bitfloor.com/book/L2/1"},
	}
}

// DefaultCrawls returns the link-count targets crawled by default.
func DefaultCrawls() map[string]CrawlTargetConfig {
	return map[string]CrawlTargetConfig{
		"trade_links": {URL: "https://en.bitcoin.it/wiki/Trade", MaxDepth: 1, MaxPages: 50},
	}
}
