package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Transport hands a fully composed message to a mail server.
type Transport interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

type SMTPTransport struct {
	cfg EmailConfig
}

func NewSMTPTransport(cfg EmailConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg.WithDefaults()}
}

func (t *SMTPTransport) Send(ctx context.Context, from string, to []string, msg []byte) error {
	if t == nil {
		return errors.New("smtp transport is nil")
	}
	if err := t.cfg.Validate(); err != nil {
		return err
	}
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	host := strings.TrimSpace(t.cfg.SMTP.Server)
	addr := net.JoinHostPort(host, fmt.Sprint(t.cfg.SMTP.Port))
	timeout := time.Duration(t.cfg.TimeoutSeconds) * time.Second
	dialer := &net.Dialer{Timeout: timeout}

	var conn net.Conn
	var err error
	if t.cfg.SMTP.UseSSL {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(4 * timeout))
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer func() { _ = c.Quit() }()

	if !t.cfg.SMTP.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
				return fmt.Errorf("smtp STARTTLS failed: %w", err)
			}
		}
	}
	auth := smtp.PlainAuth("", strings.TrimSpace(t.cfg.EmailAddress), strings.TrimSpace(t.cfg.AuthorizationCode), host)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(strings.TrimSpace(rcpt)); err != nil {
			return fmt.Errorf("smtp RCPT TO %s failed: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}
	return nil
}
