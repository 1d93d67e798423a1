package scheduler

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"grindlog/internal/digest"
	"grindlog/internal/util"
)

const DefaultRunLogPath = "runs.jsonl"

type RunRecord struct {
	RunID       string          `json:"run_id"`
	Ticket      string          `json:"ticket,omitempty"`
	Trigger     string          `json:"trigger"`
	WindowStart time.Time       `json:"window_start,omitempty"`
	WindowEnd   time.Time       `json:"window_end,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Status      string          `json:"status"` // ok|partial|error|suppressed
	Summary     string          `json:"summary,omitempty"`
	Error       string          `json:"error,omitempty"`
	Outcomes    []OutcomeRecord `json:"outcomes,omitempty"`
}

type OutcomeRecord struct {
	Email    string `json:"email"`
	Outcome  string `json:"outcome"`
	Stage    string `json:"stage,omitempty"`
	Items    int    `json:"items"`
	Degraded bool   `json:"degraded,omitempty"`
	Ref      string `json:"ref,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewRunRecord flattens a report for the run log. runErr is the error Run
// returned, if any.
func NewRunRecord(report digest.RunReport, runErr error) RunRecord {
	rec := RunRecord{
		RunID:       report.ID,
		Trigger:     report.Trigger.String(),
		WindowStart: report.Window.Start,
		WindowEnd:   report.Window.End,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Summary:     report.Summary(),
	}
	for _, o := range report.Outcomes {
		or := OutcomeRecord{
			Email:    o.Recipient.Address,
			Outcome:  string(o.Outcome.Kind),
			Stage:    string(o.Outcome.Stage),
			Items:    o.Items,
			Degraded: o.Degraded,
			Ref:      o.Outcome.DocumentRef,
		}
		if o.Outcome.Err != nil {
			or.Error = o.Outcome.Err.Error()
		}
		rec.Outcomes = append(rec.Outcomes, or)
	}

	switch {
	case runErr != nil:
		rec.Status = "error"
		rec.Error = runErr.Error()
	case report.Suppressed:
		rec.Status = "suppressed"
	default:
		rec.Status = "ok"
		if err := report.Err(); err != nil {
			rec.Status = "partial"
			rec.Error = err.Error()
		}
	}
	return rec
}

func AppendRunRecord(path string, rec RunRecord) error {
	return util.AppendJSONLine(path, rec)
}

// ReadRecentRuns returns up to limit records, newest first. Unparseable lines
// are skipped.
func ReadRecentRuns(path string, limit int) ([]RunRecord, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("path is empty")
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var all []RunRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec RunRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		all = append(all, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]RunRecord, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
