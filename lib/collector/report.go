package collector

import (
	"fmt"
	"strings"
	"time"

	"github.com/dzmitryk/discountwatch/lib/models"
	"github.com/dzmitryk/discountwatch/lib/sources"
)

// RunReport aggregates what a single collection run did across all sources.
type RunReport struct {
	RunID   string
	Started time.Time
	Elapsed time.Duration

	Sources         int
	Saved           int
	Created         int
	Updated         int
	SkippedCards    int
	SourceErrors    int
	CandidateErrors int
	Expired         int64

	NewByCategory map[models.Category]int
	FailedStores  []string
}

type sourceOutcome struct {
	saved, created, updated  int
	skipped, candidateErrors int
	err                      error
}

func newRunReport(runID string, sourceCount int) *RunReport {
	return &RunReport{
		RunID:         runID,
		Started:       time.Now().UTC(),
		Sources:       sourceCount,
		NewByCategory: make(map[models.Category]int),
	}
}

func (r *RunReport) absorb(src sources.Source, out sourceOutcome) {
	r.Saved += out.saved
	r.Created += out.created
	r.Updated += out.updated
	r.SkippedCards += out.skipped
	r.CandidateErrors += out.candidateErrors
	if out.created > 0 {
		r.NewByCategory[src.Category] += out.created
	}
	if out.err != nil {
		r.SourceErrors++
		r.FailedStores = append(r.FailedStores, src.StoreName)
	}
}

// FormatEmail renders the operator summary sent after each run.
func (r *RunReport) FormatEmail() (subject, body string) {
	subject = fmt.Sprintf("Collection run %s: %d saved, %d errors", r.RunID, r.Saved, r.SourceErrors)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Run <b>%s</b> started %s, took %s.</p>", r.RunID, r.Started.Format(time.RFC3339), r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "<p>Sources: %d, saved: %d (%d new, %d refreshed), cards skipped: %d, expired: %d.</p>",
		r.Sources, r.Saved, r.Created, r.Updated, r.SkippedCards, r.Expired)
	if r.CandidateErrors > 0 {
		fmt.Fprintf(&b, "<p>Candidate write failures: %d.</p>", r.CandidateErrors)
	}
	if len(r.FailedStores) > 0 {
		fmt.Fprintf(&b, "<p>Failed sources: %s.</p>", strings.Join(r.FailedStores, ", "))
	}
	return subject, b.String()
}
