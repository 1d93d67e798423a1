package analysis

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"grindlog/internal/digest"
	"grindlog/internal/digestlog"
	"grindlog/internal/llm"
)

const systemPrompt = "You are a world-class programming coach and an expert in data structures and algorithms, " +
	"writing feedback for GrindLog. Be insightful, direct, encouraging and specific to what the user solved. " +
	"Give honest feedback: praise strong work and point out gaps."

// Completer is the slice of llm.Client the analyzer needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

//go:embed prompt.tmpl
var promptFS embed.FS

var (
	promptOnce sync.Once
	promptTmpl *template.Template
	promptErr  error
)

func getPromptTemplate() (*template.Template, error) {
	promptOnce.Do(func() {
		b, err := promptFS.ReadFile("prompt.tmpl")
		if err != nil {
			promptErr = err
			return
		}
		promptTmpl, promptErr = template.New("prompt.tmpl").Parse(string(b))
	})
	return promptTmpl, promptErr
}

type promptData struct {
	Period string
	Items  []digest.SolvedItem
	Total  int
	Days   int
	PerDay float64
}

// Analyzer turns solved items into a coaching narrative via an LLM.
type Analyzer struct {
	completer Completer
	log       *digestlog.Logger
}

// New returns an analyzer; a nil completer makes every call fail with
// digest.ErrAnalysisUnavailable.
func New(completer Completer, log *digestlog.Logger) *Analyzer {
	return &Analyzer{completer: completer, log: log}
}

// FromConfig builds the LLM client from cfg. A missing key is not an error
// here; the analyzer simply reports itself unavailable.
func FromConfig(cfg llm.Config, log *digestlog.Logger) (*Analyzer, error) {
	client, err := llm.New(cfg)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			log.Warnf("llm api key not set; reports will use the fallback narrative")
			return New(nil, log), nil
		}
		return nil, err
	}
	return New(client, log), nil
}

func (a *Analyzer) Available() bool { return a != nil && a.completer != nil }

func (a *Analyzer) Analyze(ctx context.Context, in digest.AnalysisInput) (string, error) {
	if !a.Available() {
		return "", digest.ErrAnalysisUnavailable
	}
	if len(in.Items) == 0 {
		return "", errors.New("no solved items to analyze")
	}
	prompt, err := BuildPrompt(in)
	if err != nil {
		return "", err
	}
	a.log.Debugf("analyzing %d items %s", len(in.Items), in.Period)
	text, err := a.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		if kind := llm.Classify(err); kind != llm.ErrorKindOther {
			return "", fmt.Errorf("analysis (%s): %w", kind, err)
		}
		return "", fmt.Errorf("analysis: %w", err)
	}
	out := StripFences(text)
	if out == "" {
		return "", errors.New("analysis: empty reply")
	}
	return out, nil
}

func BuildPrompt(in digest.AnalysisInput) (string, error) {
	tmpl, err := getPromptTemplate()
	if err != nil {
		return "", err
	}
	days := in.Window.Days()
	period := strings.TrimSpace(in.Period)
	if period == "" {
		period = "yesterday"
	}
	data := promptData{
		Period: period,
		Items:  in.Items,
		Total:  len(in.Items),
		Days:   days,
		PerDay: float64(len(in.Items)) / float64(days),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StripFences removes markdown code fences models like to wrap HTML in.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	for _, fence := range []string{"```html", "```HTML", "```"} {
		s = strings.ReplaceAll(s, fence, "")
	}
	return strings.TrimSpace(s)
}
