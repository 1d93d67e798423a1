package digest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Stage string

const (
	StageFetch   Stage = "fetch"
	StageAnalyze Stage = "analyze"
	StageRender  Stage = "render"
	StageDeliver Stage = "deliver"
)

// ErrAnalysisUnavailable is returned by analyzers that have no backing model.
var ErrAnalysisUnavailable = errors.New("narrative analysis is not configured")

// ConfigurationError reports a recipient directory (or other start-up input)
// that is absent or malformed.
type ConfigurationError struct {
	Source string
	Err    error
}

func (e *ConfigurationError) Error() string {
	src := strings.TrimSpace(e.Source)
	if src == "" {
		src = "configuration"
	}
	if e.Err == nil {
		return src + ": invalid"
	}
	return fmt.Sprintf("%s: %v", src, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s", e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

// StageError is a failure of one pipeline stage for one recipient.
type StageError struct {
	Stage     Stage
	Recipient Recipient
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, strings.TrimSpace(e.Recipient.Address), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsStage reports whether err is a StageError for the given stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
