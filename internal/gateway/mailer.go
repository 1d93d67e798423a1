package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"grindlog/internal/digest"
	"grindlog/internal/digestlog"
)

const (
	ReportSubject     = "Your Daily Question Summary!"
	MotivationSubject = "A little motivation for your coding journey! 💪"

	maxAttachmentBytes = 20 << 20
)

// Mailer delivers digests by email. It implements digest.Deliverer.
type Mailer struct {
	cfg       EmailConfig
	transport Transport
	now       func() time.Time
	log       *digestlog.Logger
}

func NewMailer(cfg EmailConfig, transport Transport, log *digestlog.Logger) *Mailer {
	c := cfg.WithDefaults()
	if transport == nil {
		transport = NewSMTPTransport(c)
	}
	return &Mailer{cfg: c, transport: transport, now: time.Now, log: log}
}

func (m *Mailer) from() mail.Address {
	return mail.Address{Name: m.cfg.FromName, Address: strings.TrimSpace(m.cfg.EmailAddress)}
}

func (m *Mailer) DeliverReport(ctx context.Context, recipient digest.Recipient, doc digest.Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", errors.New("report document is empty")
	}
	if len(doc.Data) > maxAttachmentBytes {
		return "", fmt.Errorf("report %s is %d bytes, over the %d byte attachment limit", doc.Name, len(doc.Data), maxAttachmentBytes)
	}
	body := fmt.Sprintf("Hi %s,\n\nYour daily progress report is attached. Keep up the great work!", greetingName(recipient))
	return m.send(ctx, recipient, ReportSubject, body, []attachment{{
		Name:        doc.Name,
		ContentType: doc.ContentType,
		Data:        doc.Data,
	}})
}

func (m *Mailer) DeliverMotivation(ctx context.Context, recipient digest.Recipient) error {
	body := fmt.Sprintf("Hi %s,\n\nWe noticed you didn't log any problems yesterday. Consistency is key to success! "+
		"Why not try solving just one problem today to get back on track?\n\n**Keep grinding!**", greetingName(recipient))
	_, err := m.send(ctx, recipient, MotivationSubject, body, nil)
	return err
}

func (m *Mailer) send(ctx context.Context, recipient digest.Recipient, subject, body string, atts []attachment) (string, error) {
	if !m.cfg.Configured() {
		return "", errors.New("email credentials are not configured (email.email_address, email.authorization_code)")
	}
	to := strings.TrimSpace(recipient.Address)
	if to == "" {
		return "", errors.New("recipient address is empty")
	}
	now := m.now()
	names := make([]string, 0, len(atts))
	for _, a := range atts {
		names = append(names, a.Name)
	}
	htmlBody, err := renderMailHTML(mailContent{Subject: subject, Markdown: body, Attachments: names, SentAt: now})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	raw, id, err := compose(outgoing{
		From:        m.from(),
		To:          mail.Address{Name: recipient.DisplayName, Address: to},
		Subject:     subject,
		Text:        body,
		HTML:        htmlBody,
		Attachments: atts,
		Date:        now,
	})
	if err != nil {
		return "", fmt.Errorf("compose email: %w", err)
	}
	if err := m.transport.Send(ctx, m.from().Address, []string{to}, raw); err != nil {
		return "", err
	}
	m.log.Logf(digestlog.KindSend, "email %q sent to %s (%s)", subject, to, id)
	return id, nil
}

func greetingName(r digest.Recipient) string {
	if name := strings.TrimSpace(r.DisplayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(strings.TrimSpace(r.Address), "@")
	return local
}
