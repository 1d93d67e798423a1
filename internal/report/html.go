package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"grindlog/internal/digest"
)

//go:embed report_template.html
var reportTemplateFS embed.FS

type reportTemplateData struct {
	Title     string
	Greeting  string
	Total     int
	Narrative template.HTML
	Items     []solvedRow
	Footer    string
}

type solvedRow struct {
	Title    string
	Platform string
	URL      string
	SolvedAt string
}

var (
	reportTemplateOnce sync.Once
	reportTemplate     *template.Template
	reportTemplateErr  error
)

func getReportTemplate() (*template.Template, error) {
	reportTemplateOnce.Do(func() {
		b, err := reportTemplateFS.ReadFile("report_template.html")
		if err != nil {
			reportTemplateErr = err
			return
		}
		reportTemplate, reportTemplateErr = template.New("report_template.html").Parse(string(b))
	})
	return reportTemplate, reportTemplateErr
}

// Narratives arrive as HTML snippets from the model or as plain/markdown
// text from the fallback; raw HTML passes through unchanged.
var narrativeMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
	goldmark.WithRendererOptions(html.WithUnsafe(), html.WithXHTML()),
)

var narrativeMarkdownMu sync.Mutex

func narrativeHTML(text string) template.HTML {
	body := strings.TrimSpace(text)
	if body == "" {
		return ""
	}
	var out bytes.Buffer
	narrativeMarkdownMu.Lock()
	err := narrativeMarkdown.Convert([]byte(body), &out)
	narrativeMarkdownMu.Unlock()
	if err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(body) + "</p>")
	}
	return template.HTML(out.String())
}

type HTMLRenderer struct{}

func (HTMLRenderer) Render(ctx context.Context, in digest.RenderInput) (digest.Document, error) {
	tmpl, err := getReportTemplate()
	if err != nil {
		return digest.Document{}, err
	}
	title := Title(in.Recipient)
	data := reportTemplateData{
		Title:     title,
		Greeting:  Greeting(in),
		Total:     len(in.Items),
		Narrative: narrativeHTML(in.Narrative),
		Footer:    footer(in),
	}
	for _, item := range in.Items {
		data.Items = append(data.Items, solvedRow{
			Title:    item.Title,
			Platform: item.Platform,
			URL:      item.URL,
			SolvedAt: solvedAtLabel(in, item.SolvedAt),
		})
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return digest.Document{}, fmt.Errorf("render html report: %w", err)
	}
	return digest.Document{
		Name:        FileName(generatedAt(in), "html"),
		ContentType: "text/html; charset=utf-8",
		Title:       title,
		Data:        out.Bytes(),
	}, nil
}
