package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hobson/bitcrawl/internal/extract"
	"github.com/hobson/bitcrawl/internal/harvest"
	"github.com/hobson/bitcrawl/internal/record"
	"github.com/hobson/bitcrawl/internal/storage"
)

// Execute implements the go-flags Commander interface for MineCommand.
func (c *MineCommand) Execute(args []string) error {
	d, done, err := resolve(c.globals, c.deps, needLog|needJournal|needFetcher)
	if err != nil {
		return err
	}
	defer done()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.run(ctx, d)
}

func (c *MineCommand) run(ctx context.Context, d *deps) error {
	plan, err := c.plan(d)
	if err != nil {
		return err
	}
	res, err := harvestOnce(ctx, d, plan, c.DryRun)
	if err != nil {
		return err
	}
	if jsonOutput(c.globals) {
		return printJSON(res.toJSON())
	}
	res.printHuman()
	return nil
}

// plan returns the ad-hoc plan for --url, or the configured plan narrowed
// to --source.
func (c *MineCommand) plan(d *deps) (harvest.Plan, error) {
	if c.URL != "" {
		spec, err := c.RuleFlags.spec()
		if err != nil {
			return harvest.Plan{}, err
		}
		name := c.Name
		if name == "" {
			name = extract.DefaultName
		}
		return harvest.Plan{Sources: []harvest.Source{{Name: name, URL: c.URL, Spec: spec}}}, nil
	}
	if len(c.RuleFlags.Prefix) > 0 {
		return harvest.Plan{}, fmt.Errorf("--prefix requires --url")
	}
	return selectSources(d.cfg.Plan(), c.Source)
}

// spec builds an extraction spec from the rule flags: one rule without a
// field name is Single, named rules are Named, several unnamed rules are
// Indexed.
func (r RuleFlags) spec() (extract.Spec, error) {
	if len(r.Prefix) == 0 {
		return extract.Spec{}, fmt.Errorf("--url requires at least one --prefix/--regex pair")
	}
	if len(r.Regex) != len(r.Prefix) {
		return extract.Spec{}, fmt.Errorf("got %d --prefix and %d --regex; they must pair up", len(r.Prefix), len(r.Regex))
	}
	if len(r.Suffix) > len(r.Prefix) {
		return extract.Spec{}, fmt.Errorf("more --suffix than --prefix")
	}
	if len(r.Field) > 0 && len(r.Field) != len(r.Prefix) {
		return extract.Spec{}, fmt.Errorf("got %d --field for %d rules", len(r.Field), len(r.Prefix))
	}

	rules := make([]extract.Rule, len(r.Prefix))
	for i := range r.Prefix {
		rules[i] = extract.Rule{Prefix: r.Prefix[i], Value: r.Regex[i]}
		if i < len(r.Suffix) {
			rules[i].Suffix = r.Suffix[i]
		}
	}

	var spec extract.Spec
	switch {
	case len(r.Field) > 0:
		fields := make([]extract.Field, len(rules))
		for i, rule := range rules {
			fields[i] = extract.Field{Name: r.Field[i], Rule: rule}
		}
		spec = extract.Named(fields...)
	case len(rules) == 1:
		spec = extract.Single(rules[0])
	default:
		spec = extract.Indexed(rules...)
	}
	return spec, spec.Validate()
}

// selectSources keeps only the named entries of plan. No names keeps all.
func selectSources(plan harvest.Plan, names []string) (harvest.Plan, error) {
	if len(names) == 0 {
		return plan, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	out := harvest.Plan{DenyHosts: plan.DenyHosts}
	for _, s := range plan.Sources {
		if want[s.Name] {
			out.Sources = append(out.Sources, s)
			delete(want, s.Name)
		}
	}
	for _, e := range plan.Endpoints {
		if want[e.Name] {
			out.Endpoints = append(out.Endpoints, e)
			delete(want, e.Name)
		}
	}
	for _, ct := range plan.Crawls {
		if want[ct.Name] {
			out.Crawls = append(out.Crawls, ct)
			delete(want, ct.Name)
		}
	}
	for n := range want {
		return harvest.Plan{}, fmt.Errorf("unknown source %q", n)
	}
	return out, nil
}

// mineResult is the outcome of one harvest.
type mineResult struct {
	record   record.Record
	report   *harvest.Report
	appended bool
	logPath  string
}

// harvestOnce runs plan, appends the record to the log unless dryRun and
// marks the run appended in the journal.
func harvestOnce(ctx context.Context, d *deps, plan harvest.Plan, dryRun bool) (*mineResult, error) {
	var journal storage.Journal
	if d.journal != nil {
		journal = d.journal
	}
	h := harvest.New(d.fetcher, journal,
		harvest.WithConcurrency(d.cfg.Fetch.Concurrency),
		harvest.WithClock(d.now),
	)

	rec, report, err := h.Run(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("harvest: %w", err)
	}

	res := &mineResult{record: rec, report: report, logPath: d.log.Path()}
	if dryRun || len(rec) == 0 {
		return res, nil
	}

	if err := d.log.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append record: %w", err)
	}
	res.appended = true
	if err := h.MarkAppended(ctx, report); err != nil {
		return nil, fmt.Errorf("journal run: %w", err)
	}
	return res, nil
}

type outcomeJSON struct {
	Source string   `json:"source"`
	Kind   string   `json:"kind"`
	URL    string   `json:"url"`
	Status int      `json:"status,omitempty"`
	Fields int      `json:"fields"`
	Misses []string `json:"misses,omitempty"`
	Error  string   `json:"error,omitempty"`
}

type mineJSON struct {
	RunID    string        `json:"run_id,omitempty"`
	Appended bool          `json:"appended"`
	LogFile  string        `json:"log_file"`
	Failed   int           `json:"failed"`
	Record   record.Record `json:"record"`
	Outcomes []outcomeJSON `json:"outcomes"`
}

func (r *mineResult) toJSON() mineJSON {
	out := mineJSON{
		RunID:    r.report.RunID,
		Appended: r.appended,
		LogFile:  r.logPath,
		Failed:   r.report.Failed(),
		Record:   r.record,
		Outcomes: make([]outcomeJSON, len(r.report.Outcomes)),
	}
	for i, o := range r.report.Outcomes {
		oj := outcomeJSON{Source: o.Name, Kind: o.Kind, URL: o.URL, Status: o.Status, Fields: o.Fields}
		for _, m := range o.Misses {
			oj.Misses = append(oj.Misses, m.Field)
		}
		if o.Err != nil {
			oj.Error = o.Err.Error()
		}
		out.Outcomes[i] = oj
	}
	return out
}

func (r *mineResult) printHuman() {
	t := newTable()
	t.AppendHeader(table.Row{"Source", "Kind", "Status", "Fields", "Missed", "Error"})
	for _, o := range r.report.Outcomes {
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		missed := make([]string, 0, len(o.Misses))
		for _, m := range o.Misses {
			missed = append(missed, m.Field)
		}
		t.AppendRow(table.Row{o.Name, o.Kind, o.Status, o.Fields, strings.Join(missed, ", "), errText})
	}
	t.Render()

	ok := len(r.report.Outcomes) - r.report.Failed()
	switch {
	case r.appended:
		fmt.Printf("Appended %s to %s\n", plural(ok, "source"), r.logPath)
	case len(r.record) == 0:
		fmt.Println("Nothing mined; log unchanged.")
	default:
		fmt.Printf("Dry run: mined %s, log unchanged.\n", plural(ok, "source"))
	}
	if r.report.RunID != "" {
		fmt.Printf("Run %s\n", r.report.RunID)
	}
}
