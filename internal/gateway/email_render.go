package gateway

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"grindlog/internal/appinfo"
)

//go:embed email_template.html
var mailLayoutFS embed.FS

// mailContent is everything the layout needs for one outgoing message.
type mailContent struct {
	Subject     string
	Markdown    string
	Attachments []string
	SentAt      time.Time
}

type mailLayoutData struct {
	Brand       string
	Subject     string
	Preheader   string
	Body        template.HTML
	Attachments []string
	Footer      string
}

var (
	mailLayoutOnce sync.Once
	mailLayout     *template.Template
	mailLayoutErr  error
)

func loadMailLayout() (*template.Template, error) {
	mailLayoutOnce.Do(func() {
		b, err := mailLayoutFS.ReadFile("email_template.html")
		if err != nil {
			mailLayoutErr = err
			return
		}
		mailLayout, mailLayoutErr = template.New("mail").Parse(string(b))
	})
	return mailLayout, mailLayoutErr
}

// goldmark's Markdown is safe for concurrent Convert calls.
var mailMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// renderMailHTML turns the plain-text body (light markdown) into the HTML
// alternative part.
func renderMailHTML(c mailContent) (string, error) {
	body := strings.TrimSpace(c.Markdown)
	if body == "" {
		return "", fmt.Errorf("message %q has no body", c.Subject)
	}

	var content bytes.Buffer
	if err := mailMarkdown.Convert([]byte(body), &content); err != nil {
		content.Reset()
		content.WriteString("<p>")
		content.WriteString(template.HTMLEscapeString(body))
		content.WriteString("</p>")
	}

	sentAt := c.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	tmpl, err := loadMailLayout()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	err = tmpl.Execute(&out, mailLayoutData{
		Brand:       appinfo.Name,
		Subject:     strings.TrimSpace(c.Subject),
		Preheader:   mailPreheader(body),
		Body:        template.HTML(content.String()),
		Attachments: c.Attachments,
		Footer:      fmt.Sprintf("Sent by %s on %s", appinfo.Display(), sentAt.UTC().Format("Jan 2, 2006 15:04 MST")),
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// mailPreheader is the inbox preview line: the body after the greeting,
// without markdown emphasis, cut at a word boundary.
func mailPreheader(body string) string {
	text := body
	if _, rest, ok := strings.Cut(text, "\n\n"); ok && strings.HasPrefix(strings.TrimSpace(text), "Hi ") {
		text = rest
	}
	text = strings.NewReplacer("**", "", "__", "", "`", "").Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	const limit = 120
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
