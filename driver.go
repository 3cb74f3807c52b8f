package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// SkipPolicy selects what a filtered issue leaves behind: nothing, or a
// synthetic placeholder result. Both behaviors exist in the field; callers
// pick one per run.
type SkipPolicy int

const (
	DropFiltered SkipPolicy = iota
	PlaceholderFiltered
)

// disabledTestPrefix marks disabled-test tracking issues, which are not
// user-reported problems and are never analyzed.
const disabledTestPrefix = "DISABLED"

// Categorizer is the incremental loop for categorization runs. Each issue is
// resolved fully, in fetch order, before the next one: filter check, cache
// check, comment fetch, analysis. The returned batch holds at most one
// result per issue number that was not already cached.
type Categorizer struct {
	Store    *ResultStore
	Analyzer Analyzer
	// Comments supplies the discussion thread for issues that need
	// processing; nil means issues are analyzed without comments. A fetch
	// failure is logged and the issue proceeds with an empty thread.
	Comments func(ctx context.Context, number int) ([]string, error)
	Skip     SkipPolicy

	history []HistoryRow
}

// History returns one row per issue from the last Run, with each issue's
// disposition, for the optional run-history DB.
func (c *Categorizer) History() []HistoryRow {
	return c.history
}

func (c *Categorizer) record(issue Issue, disposition, confidence string) {
	c.history = append(c.history, HistoryRow{
		Issue:       issue.Number,
		Title:       issue.Title,
		Disposition: disposition,
		Confidence:  confidence,
	})
}

func (c *Categorizer) Run(ctx context.Context, issues []Issue) ([]Result, RunStats) {
	stats := RunStats{Fetched: len(issues)}
	c.history = nil
	var batch []Result

	for i, issue := range issues {
		if strings.HasPrefix(issue.Title, disabledTestPrefix) {
			stats.Filtered++
			c.record(issue, "filtered", "")
			log.Printf("categorize [%d/%d] issue=#%d disabled test, skipping", i+1, len(issues), issue.Number)
			if c.Skip == PlaceholderFiltered {
				batch = append(batch, Result{
					IssueNumber: issue.Number,
					Title:       issue.Title,
					URL:         issue.URL,
					State:       issue.State,
					Labels:      issue.Labels,
					Confidence:  "low",
					Reasoning:   "Skipped (disabled test tracking issue)",
				})
			}
			continue
		}

		if cached, ok := c.Store.Lookup(issue.Number); ok {
			stats.Cached++
			c.record(issue, "cached", cached.Confidence)
			batch = append(batch, cached)
			log.Printf("categorize [%d/%d] issue=#%d already cached, skipping", i+1, len(issues), issue.Number)
			continue
		}

		if c.Comments != nil && len(issue.Comments) == 0 {
			comments, err := c.Comments(ctx, issue.Number)
			if err != nil {
				log.Printf("categorize comment fetch warning issue=#%d err=%v", issue.Number, err)
			} else {
				issue.Comments = comments
			}
		}

		log.Printf("categorize [%d/%d] analyzing issue=#%d title=%q", i+1, len(issues), issue.Number, truncate(issue.Title, 50))
		outcome := c.Analyzer.Analyze(ctx, issue)
		result := outcomeToResult(issue, outcome)
		if outcome.Kind == OutcomeParsed {
			stats.Analyzed++
			c.record(issue, "analyzed", result.Confidence)
		} else {
			stats.Failed++
			c.record(issue, "failed", result.Confidence)
		}
		batch = append(batch, result)
		log.Printf("categorize [%d/%d] issue=#%d -> %s (%s confidence)",
			i+1, len(issues), issue.Number, verdictLabel(result), result.Confidence)
	}

	return batch, stats
}

func verdictLabel(r Result) string {
	switch {
	case r.IsUserError == nil:
		return "UNCERTAIN"
	case *r.IsUserError:
		return "USER ERROR"
	default:
		return "NOT user error"
	}
}

// DeepAnalyzer produces a full triage result inside an issue directory.
type DeepAnalyzer interface {
	Debug(ctx context.Context, ctxPath, issueDir string) error
}

// Triager is the incremental loop for deep triage runs. The cache predicate
// is the per-issue result file; closed issues are optionally filtered with a
// placeholder result so they still count in the report.
type Triager struct {
	OutputDir  string
	Analyzer   DeepAnalyzer
	SkipClosed bool

	history []HistoryRow
}

func (t *Triager) History() []HistoryRow {
	return t.history
}

func (t *Triager) record(issue Issue, disposition, category string) {
	t.history = append(t.history, HistoryRow{
		Issue:       issue.Number,
		Title:       issue.Title,
		Disposition: disposition,
		Category:    category,
	})
}

func (t *Triager) Run(ctx context.Context, issues []Issue) RunStats {
	stats := RunStats{Fetched: len(issues)}
	t.history = nil

	for _, issue := range issues {
		issueDir := filepath.Join(t.OutputDir, issueDirName(issue))
		resultPath := filepath.Join(issueDir, triageResultFile)

		if hasTriageResult(t.OutputDir, issue) {
			stats.Cached++
			t.record(issue, "cached", readTriageResult(resultPath).Category)
			log.Printf("triage issue=#%d result already exists, skipping", issue.Number)
			continue
		}

		if issue.Closed() && t.SkipClosed {
			stats.Filtered++
			t.record(issue, "filtered", "error")
			log.Printf("triage issue=#%d closed, writing skip placeholder", issue.Number)
			if err := os.MkdirAll(issueDir, 0755); err != nil {
				log.Printf("triage issue=#%d mkdir error: %v", issue.Number, err)
				continue
			}
			placeholder := TriageResult{
				Category: "error",
				Summary:  "Skipped (issue is closed)",
				Closed:   true,
			}
			if err := writeTriageResult(resultPath, placeholder); err != nil {
				log.Printf("triage issue=#%d placeholder write error: %v", issue.Number, err)
			}
			continue
		}

		log.Printf("triage processing issue=#%d title=%q closed=%v", issue.Number, truncate(issue.Title, 60), issue.Closed())
		if err := os.MkdirAll(issueDir, 0755); err != nil {
			stats.Failed++
			t.record(issue, "failed", "error")
			log.Printf("triage issue=#%d mkdir error: %v", issue.Number, err)
			continue
		}

		ctxPath, err := writeIssueContext(issue, issueDir)
		if err != nil {
			stats.Failed++
			t.record(issue, "failed", "error")
			log.Printf("triage issue=#%d context error: %v", issue.Number, err)
			continue
		}

		if err := t.Analyzer.Debug(ctx, ctxPath, issueDir); err != nil {
			stats.Failed++
			t.record(issue, "failed", "error")
			log.Printf("triage issue=#%d analyzer error: %v", issue.Number, err)
			// Record the failure so re-runs do not retry and the report
			// shows the issue as unresolved.
			failed := TriageResult{
				Category: "error",
				Summary:  "Analysis failed: " + truncate(err.Error(), 200),
				Closed:   issue.Closed(),
			}
			if werr := writeTriageResult(resultPath, failed); werr != nil {
				log.Printf("triage issue=#%d failure record error: %v", issue.Number, werr)
			}
			continue
		}

		stats.Analyzed++
		t.record(issue, "analyzed", readTriageResult(resultPath).Category)
		if issue.Closed() {
			result := readTriageResult(resultPath)
			result.Closed = true
			if err := writeTriageResult(resultPath, result); err != nil {
				log.Printf("triage issue=#%d closed flag write error: %v", issue.Number, err)
			}
		}
		log.Printf("triage issue=#%d result written", issue.Number)
	}

	return stats
}
