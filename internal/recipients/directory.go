package recipients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"grindlog/internal/digest"
)

const DefaultEnvVar = "DAILY_DIGEST_USERS"

type Config struct {
	// EnvVar names the variable holding a JSON array of {"name","email"}.
	EnvVar string `json:"env_var,omitempty"`
	// File is a YAML or JSON document with the same shape (or {"users": [...]}).
	File  string             `json:"file,omitempty"`
	Users []digest.Recipient `json:"users,omitempty"`
}

func (c Config) WithDefaults() Config {
	out := c
	if strings.TrimSpace(out.EnvVar) == "" {
		out.EnvVar = DefaultEnvVar
	}
	return out
}

// Directory resolves recipients from the first configured source: the
// environment variable, then the file, then the inline list. Sources are
// re-read on every call so edits apply on the next run.
type Directory struct {
	cfg    Config
	lookup func(string) (string, bool)
}

func New(cfg Config) *Directory {
	return &Directory{cfg: cfg.WithDefaults(), lookup: os.LookupEnv}
}

// Check verifies at start-up that some source is present and parses.
func (d *Directory) Check(ctx context.Context) error {
	if _, err := d.ListRecipients(ctx); err != nil {
		return err
	}
	return nil
}

func (d *Directory) ListRecipients(ctx context.Context) ([]digest.Recipient, error) {
	if raw, ok := d.lookup(d.cfg.EnvVar); ok && strings.TrimSpace(raw) != "" {
		list, err := parseJSONList([]byte(raw))
		if err != nil {
			return nil, &digest.ConfigurationError{Source: d.cfg.EnvVar, Err: err}
		}
		return normalize(d.cfg.EnvVar, list)
	}
	if path := strings.TrimSpace(d.cfg.File); path != "" {
		list, err := loadFile(path)
		if err != nil {
			return nil, &digest.ConfigurationError{Source: path, Err: err}
		}
		return normalize(path, list)
	}
	if len(d.cfg.Users) > 0 {
		return normalize("recipients.users", d.cfg.Users)
	}
	return nil, &digest.ConfigurationError{
		Source: "recipients",
		Err:    fmt.Errorf("no recipients configured: set %s, recipients.file or recipients.users", d.cfg.EnvVar),
	}
}

func parseJSONList(data []byte) ([]digest.Recipient, error) {
	var list []digest.Recipient
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("expected a JSON array of {\"name\",\"email\"}: %w", err)
	}
	return list, nil
}

type fileDoc struct {
	Users []digest.Recipient `yaml:"users"`
}

func loadFile(path string) ([]digest.Recipient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			return parseJSONList(data)
		}
		var doc struct {
			Users []digest.Recipient `json:"users"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return doc.Users, nil
	}

	// YAML is a superset of JSON, so both shapes decode here.
	var list []digest.Recipient
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse recipients file: %w", err)
	}
	return doc.Users, nil
}

func normalize(source string, list []digest.Recipient) ([]digest.Recipient, error) {
	out := make([]digest.Recipient, 0, len(list))
	seen := make(map[string]bool, len(list))
	var problems []string
	for i, r := range list {
		addr := strings.TrimSpace(r.Address)
		if addr == "" {
			problems = append(problems, fmt.Sprintf("entry %d: email is required", i))
			continue
		}
		parsed, err := mail.ParseAddress(addr)
		if err != nil {
			problems = append(problems, fmt.Sprintf("entry %d: invalid email %q", i, addr))
			continue
		}
		key := strings.ToLower(parsed.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		name := strings.TrimSpace(r.DisplayName)
		if name == "" {
			name = parsed.Name
		}
		if name == "" {
			name, _, _ = strings.Cut(parsed.Address, "@")
		}
		out = append(out, digest.Recipient{DisplayName: name, Address: parsed.Address})
	}
	if len(problems) > 0 {
		return nil, &digest.ConfigurationError{Source: source, Err: errors.New(strings.Join(problems, "; "))}
	}
	return out, nil
}
