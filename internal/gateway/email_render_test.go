package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"

	"grindlog/internal/digest"
)

func TestRenderMailHTML(t *testing.T) {
	out, err := renderMailHTML(mailContent{
		Subject:     "Your Daily Question Summary!",
		Markdown:    "Hi Alice,\n\nYour report is **attached**.\n\n~~old~~ `code`",
		Attachments: []string{"daily-summary-2024-01-02.html"},
		SentAt:      time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("renderMailHTML: %v", err)
	}
	for _, want := range []string{
		"<!doctype html>",
		"<title>Your Daily Question Summary!</title>",
		"<strong>attached</strong>",
		"<del>old</del>",
		"<code>code</code>",
		"<strong>daily-summary-2024-01-02.html</strong>",
		"Jan 2, 2024 08:00 UTC",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered mail missing %q", want)
		}
	}
	if _, err := renderMailHTML(mailContent{Subject: "x", Markdown: "  "}); err == nil {
		t.Fatalf("expected error for an empty body")
	}
}

func TestMailPreheader(t *testing.T) {
	if got := mailPreheader("Hi Bob,\n\nWe noticed **nothing** yesterday."); got != "We noticed nothing yesterday." {
		t.Fatalf("unexpected preheader %q", got)
	}
	long := strings.Repeat("word ", 60)
	got := mailPreheader(long)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) > 121 || strings.Contains(got, "wor…") {
		t.Fatalf("preheader should be cut at a word boundary: %q", got)
	}
}

type capturedMail struct {
	from string
	to   []string
	raw  []byte
}

type fakeTransport struct {
	sent []capturedMail
	err  error
}

func (f *fakeTransport) Send(ctx context.Context, from string, to []string, msg []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, capturedMail{from: from, to: to, raw: append([]byte(nil), msg...)})
	return nil
}

type parsedPart struct {
	contentType string
	filename    string
	body        string
}

func parseMail(t *testing.T, raw []byte) (*mail.Reader, []parsedPart) {
	t.Helper()
	r, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("CreateReader: %v", err)
	}
	var parts []parsedPart
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		body, _ := io.ReadAll(p.Body)
		part := parsedPart{body: string(body)}
		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			part.contentType, _, _ = h.ContentType()
		case *mail.AttachmentHeader:
			part.contentType, _, _ = h.ContentType()
			part.filename, _ = h.Filename()
		}
		parts = append(parts, part)
	}
	return r, parts
}

func testMailer(tr Transport) *Mailer {
	m := NewMailer(EmailConfig{EmailAddress: "digest@example.com", AuthorizationCode: "secret"}, tr, nil)
	m.now = func() time.Time { return time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC) }
	return m
}

func TestDeliverReportAttachesDocument(t *testing.T) {
	tr := &fakeTransport{}
	m := testMailer(tr)
	doc := digest.Document{Name: "daily-summary-2024-01-02.html", ContentType: "text/html; charset=utf-8", Data: []byte("<p>report</p>")}

	ref, err := m.DeliverReport(context.Background(), digest.Recipient{DisplayName: "Alice", Address: "alice@example.com"}, doc)
	if err != nil {
		t.Fatalf("DeliverReport: %v", err)
	}
	if ref == "" {
		t.Fatalf("expected a message id reference")
	}
	if len(tr.sent) != 1 || tr.sent[0].from != "digest@example.com" || tr.sent[0].to[0] != "alice@example.com" {
		t.Fatalf("unexpected envelope %+v", tr.sent)
	}

	r, parts := parseMail(t, tr.sent[0].raw)
	subject, _ := r.Header.Subject()
	if subject != ReportSubject {
		t.Fatalf("unexpected subject %q", subject)
	}
	from, _ := r.Header.AddressList("From")
	if len(from) != 1 || from[0].Name != DefaultFromName {
		t.Fatalf("unexpected from %v", from)
	}
	if id, _ := r.Header.MessageID(); id != ref {
		t.Fatalf("ref %q should match Message-ID %q", ref, id)
	}

	var sawText, sawHTML, sawAttachment bool
	for _, p := range parts {
		switch {
		case p.filename != "":
			sawAttachment = p.filename == doc.Name && p.body == "<p>report</p>"
		case p.contentType == "text/plain":
			sawText = strings.Contains(p.body, "Hi Alice,")
		case p.contentType == "text/html":
			sawHTML = strings.Contains(p.body, "Your daily progress report is attached.")
		}
	}
	if !sawText || !sawHTML || !sawAttachment {
		t.Fatalf("missing parts: text=%v html=%v attachment=%v", sawText, sawHTML, sawAttachment)
	}
}

func TestDeliverMotivationHasNoAttachment(t *testing.T) {
	tr := &fakeTransport{}
	m := testMailer(tr)
	if err := m.DeliverMotivation(context.Background(), digest.Recipient{Address: "bob@example.com"}); err != nil {
		t.Fatalf("DeliverMotivation: %v", err)
	}
	r, parts := parseMail(t, tr.sent[0].raw)
	subject, _ := r.Header.Subject()
	if subject != MotivationSubject {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, p := range parts {
		if p.filename != "" {
			t.Fatalf("motivation email must not carry attachments")
		}
		if p.contentType == "text/plain" && !strings.Contains(p.body, "Hi bob,") {
			t.Fatalf("expected greeting from address local part, got %q", p.body)
		}
	}
}

func TestDeliverRequiresCredentials(t *testing.T) {
	tr := &fakeTransport{}
	m := NewMailer(EmailConfig{}, tr, nil)
	if err := m.DeliverMotivation(context.Background(), digest.Recipient{Address: "bob@example.com"}); err == nil {
		t.Fatalf("expected error without credentials")
	}
	if len(tr.sent) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestDeliverPropagatesTransportError(t *testing.T) {
	m := testMailer(&fakeTransport{err: errors.New("535 auth failed")})
	doc := digest.Document{Name: "r.html", Data: []byte("x")}
	if _, err := m.DeliverReport(context.Background(), digest.Recipient{Address: "a@example.com"}, doc); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestEmailConfigDefaults(t *testing.T) {
	c := EmailConfig{}.WithDefaults()
	if c.Provider != "gmail" || c.SMTP.Server != "smtp.gmail.com" || c.SMTP.Port != 465 || !c.SMTP.UseSSL {
		t.Fatalf("unexpected defaults %+v", c)
	}
	custom := EmailConfig{Provider: "gmail", SMTP: SMTPConfig{Server: "localhost", Port: 1025}}.WithDefaults()
	if custom.SMTP.Server != "localhost" || custom.SMTP.UseSSL {
		t.Fatalf("explicit smtp settings should win: %+v", custom.SMTP)
	}
}
