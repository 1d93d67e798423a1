package gateway

import (
	"errors"
	"strings"
)

const DefaultFromName = "GrindLog Daily Digest"

type EmailConfig struct {
	Provider          string     `json:"provider"`
	EmailAddress      string     `json:"email_address"`
	AuthorizationCode string     `json:"authorization_code"`
	FromName          string     `json:"from_name"`
	SMTP              SMTPConfig `json:"smtp"`

	TimeoutSeconds int `json:"timeout_seconds"`
}

type SMTPConfig struct {
	Server string `json:"server"`
	Port   int    `json:"port"`
	// UseSSL dials implicit TLS (port 465); otherwise STARTTLS is used when offered.
	UseSSL bool `json:"use_ssl"`
}

type providerDefaults struct {
	server string
	port   int
	ssl    bool
}

var knownProviders = map[string]providerDefaults{
	"gmail":   {server: "smtp.gmail.com", port: 465, ssl: true},
	"126":     {server: "smtp.126.com", port: 465, ssl: true},
	"outlook": {server: "smtp.office365.com", port: 587},
}

func (c EmailConfig) WithDefaults() EmailConfig {
	out := c
	out.Provider = strings.ToLower(strings.TrimSpace(out.Provider))
	if out.Provider == "" {
		out.Provider = "gmail"
	}
	if strings.TrimSpace(out.FromName) == "" {
		out.FromName = DefaultFromName
	}
	if p, ok := knownProviders[out.Provider]; ok && strings.TrimSpace(out.SMTP.Server) == "" {
		out.SMTP.Server = p.server
		if out.SMTP.Port <= 0 {
			out.SMTP.Port = p.port
		}
		out.SMTP.UseSSL = p.ssl
	}
	if out.SMTP.Port <= 0 {
		out.SMTP.Port = 465
	}
	if out.TimeoutSeconds <= 0 {
		out.TimeoutSeconds = 15
	}
	return out
}

// Configured reports whether credentials are present; delivery fails without them.
func (c EmailConfig) Configured() bool {
	return strings.TrimSpace(c.EmailAddress) != "" && strings.TrimSpace(c.AuthorizationCode) != ""
}

func (c EmailConfig) Validate() error {
	if strings.TrimSpace(c.EmailAddress) == "" {
		return errors.New("email.email_address is required")
	}
	if strings.TrimSpace(c.AuthorizationCode) == "" {
		return errors.New("email.authorization_code is required")
	}
	if strings.TrimSpace(c.SMTP.Server) == "" {
		return errors.New("email.smtp.server is required")
	}
	if c.SMTP.Port <= 0 {
		return errors.New("email.smtp.port is required")
	}
	return nil
}
