package bootstrap

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed templates/config.json templates/env.example templates/recipients.yaml
var templatesFS embed.FS

type InitOptions struct {
	ConfigPath     string
	EnvPath        string
	RecipientsPath string
}

type InitReport struct {
	ConfigPath     string
	EnvPath        string
	RecipientsPath string
	Created        []string
	Skipped        []string
}

// Init writes starter files next to the binary's working directory. Existing
// files are left untouched and reported as skipped.
func Init(opts InitOptions) (InitReport, error) {
	report := InitReport{
		ConfigPath:     strings.TrimSpace(opts.ConfigPath),
		EnvPath:        strings.TrimSpace(opts.EnvPath),
		RecipientsPath: strings.TrimSpace(opts.RecipientsPath),
	}
	if report.ConfigPath == "" {
		report.ConfigPath = "config.json"
	}
	if report.EnvPath == "" {
		report.EnvPath = filepath.Join(filepath.Dir(report.ConfigPath), ".env")
	}
	if report.RecipientsPath == "" {
		report.RecipientsPath = filepath.Join(filepath.Dir(report.ConfigPath), "recipients.yaml")
	}

	files := []struct {
		path     string
		template string
		perm     os.FileMode
	}{
		{report.ConfigPath, "templates/config.json", 0o600},
		{report.EnvPath, "templates/env.example", 0o600},
		{report.RecipientsPath, "templates/recipients.yaml", 0o644},
	}
	for _, f := range files {
		data, err := templatesFS.ReadFile(f.template)
		if err != nil {
			return report, fmt.Errorf("read template %s: %w", f.template, err)
		}
		if err := writeTemplateFile(f.path, f.perm, data, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func writeTemplateFile(path string, perm os.FileMode, data []byte, report *InitReport) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		if report != nil {
			report.Skipped = append(report.Skipped, path)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("missing template for %s", path)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	out := data
	if out[len(out)-1] != '\n' {
		out = append(append([]byte(nil), out...), '\n')
	}
	if err := os.WriteFile(path, out, perm); err != nil {
		return err
	}
	if report != nil {
		report.Created = append(report.Created, path)
	}
	return nil
}
