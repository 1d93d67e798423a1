package gateway

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

type attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type outgoing struct {
	From        mail.Address
	To          mail.Address
	Subject     string
	Text        string
	HTML        string
	Attachments []attachment
	Date        time.Time
}

// compose renders msg as RFC 5322 bytes and returns them with the generated
// Message-ID. Bodies go out as multipart/alternative; attachments wrap that
// in multipart/mixed.
func compose(msg outgoing) ([]byte, string, error) {
	if strings.TrimSpace(msg.To.Address) == "" {
		return nil, "", errors.New("recipient address is required")
	}
	var h mail.Header
	date := msg.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	from := msg.From
	h.SetAddressList("From", []*mail.Address{&from})
	to := msg.To
	h.SetAddressList("To", []*mail.Address{&to})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", err
	}
	id, err := h.MessageID()
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if len(msg.Attachments) == 0 {
		iw, err := mail.CreateInlineWriter(&buf, h)
		if err != nil {
			return nil, "", err
		}
		if err := writeBodies(iw, msg.Text, msg.HTML); err != nil {
			return nil, "", err
		}
		if err := iw.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), id, nil
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", err
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return nil, "", err
	}
	if err := writeBodies(iw, msg.Text, msg.HTML); err != nil {
		return nil, "", err
	}
	if err := iw.Close(); err != nil {
		return nil, "", err
	}
	for _, att := range msg.Attachments {
		var ah mail.AttachmentHeader
		ct := strings.TrimSpace(att.ContentType)
		if ct == "" {
			ct = "application/octet-stream"
		}
		ah.Set("Content-Type", ct)
		ah.SetFilename(att.Name)
		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(att.Data); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), id, nil
}

func writeBodies(iw *mail.InlineWriter, text, html string) error {
	if strings.TrimSpace(text) == "" {
		text = "(empty)"
	}
	parts := []struct {
		contentType string
		body        string
	}{
		{contentType: "text/plain", body: text},
		{contentType: "text/html", body: html},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		var ih mail.InlineHeader
		ih.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})
		w, err := iw.CreatePart(ih)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}
