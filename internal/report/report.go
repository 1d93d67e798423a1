package report

import (
	"fmt"
	"strings"
	"time"

	"grindlog/internal/appinfo"
	"grindlog/internal/digest"
)

const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
	FormatXLSX = "xlsx"
)

// New returns the renderer for a configured format name.
func New(format string) (digest.DocumentRenderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatPDF:
		return PDFRenderer{}, nil
	case FormatHTML:
		return HTMLRenderer{}, nil
	case FormatXLSX, "excel":
		return XLSXRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q (supported: %q, %q, %q)", format, FormatPDF, FormatHTML, FormatXLSX)
	}
}

// FileName is the attachment name, daily-summary-YYYY-MM-DD.<ext>, dated by
// generation time.
func FileName(at time.Time, ext string) string {
	return fmt.Sprintf("daily-summary-%s.%s", at.UTC().Format(digest.DateLayout), strings.TrimPrefix(ext, "."))
}

func Title(r digest.Recipient) string {
	return "Daily Progress Report for " + displayName(r)
}

func displayName(r digest.Recipient) string {
	if name := strings.TrimSpace(r.DisplayName); name != "" {
		return name
	}
	if addr := strings.TrimSpace(r.Address); addr != "" {
		local, _, _ := strings.Cut(addr, "@")
		return local
	}
	return "there"
}

func period(p string) string {
	if s := strings.TrimSpace(p); s != "" {
		return s
	}
	return "yesterday"
}

// Greeting reads naturally for every period DescribePeriod produces:
// "yesterday", "on January 2, 2024" and "from ... to ...".
func Greeting(in digest.RenderInput) string {
	return fmt.Sprintf("Hi %s, here's what you solved %s!", displayName(in.Recipient), period(in.Period))
}

// solvedAtLabel shows t in the zone the window was resolved in.
func solvedAtLabel(in digest.RenderInput, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(in.Window.Start.Location()).Format("Jan 2 15:04 MST")
}

func footer(in digest.RenderInput) string {
	return fmt.Sprintf("%s • %s", appinfo.Name, generatedAt(in).UTC().Format(time.RFC3339))
}

func generatedAt(in digest.RenderInput) time.Time {
	if in.GeneratedAt.IsZero() {
		return time.Now()
	}
	return in.GeneratedAt
}
