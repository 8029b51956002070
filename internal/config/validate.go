package config

import (
	"fmt"
	"strings"

	"propetl/internal/property"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "parser.options.header_map.acct").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate p. Source path emptiness is only a warning because the path is
// commonly supplied per run.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs and metrics",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateCheckpoint(p.Checkpoint)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case "":
		issues = append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{SeverityWarning, "source.file.path", "no default path; one must be given per run"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "source.kind", fmt.Sprintf("unsupported source kind %q", s.Kind)})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	switch p.Kind {
	case "":
		return append(issues, Issue{SeverityError, "parser.kind", "parser.kind must not be empty"})
	case "csv":
	default:
		return append(issues, Issue{SeverityError, "parser.kind", fmt.Sprintf("unsupported parser kind %q", p.Kind)})
	}

	if v := p.Options.Any("comma"); v != nil {
		s, ok := v.(string)
		if !ok || len([]rune(s)) != 1 {
			issues = append(issues, Issue{SeverityError, "parser.options.comma", "comma must be a single character"})
		} else if s == "\"" || s == "\n" || s == "\r" {
			issues = append(issues, Issue{SeverityError, "parser.options.comma", fmt.Sprintf("invalid delimiter %q", s)})
		}
	}

	if raw := p.Options.Any("header_map"); raw != nil {
		if _, ok := raw.(map[string]any); !ok {
			issues = append(issues, Issue{SeverityError, "parser.options.header_map", "header_map must be an object of synonym -> field"})
		}
	}
	for synonym, target := range p.Options.StringMap("header_map") {
		path := "parser.options.header_map." + synonym
		f, ok := property.Lookup(target)
		switch {
		case !ok:
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("unknown canonical field %q", target)})
		case f.Derived():
			issues = append(issues, Issue{SeverityError, path, fmt.Sprintf("%q is computed and cannot be mapped from a column", target)})
		}
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	switch s.Kind {
	case "":
		return append(issues, Issue{SeverityError, "storage.kind", "storage.kind must not be empty"})
	case "memory":
		return issues
	case "sqlite", "postgres", "mssql":
	default:
		return append(issues, Issue{SeverityError, "storage.kind", fmt.Sprintf("unsupported storage kind %q", s.Kind)})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.dsn", s.Kind + " storage requires a dsn"})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.table", "table must not be empty"})
	}
	if !s.DB.AutoCreateTable {
		issues = append(issues, Issue{SeverityWarning, "storage.db.auto_create_table", "table must already exist with the canonical columns"})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.ChunkSize < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.chunk_size", "chunk_size must be >= 0 (0 = default)"})
	}
	if r.MaxErrors < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.max_errors", "max_errors must be >= 0 (0 = default)"})
	}
	if r.ChunkSize > 100_000 {
		issues = append(issues, Issue{SeverityWarning, "runtime.chunk_size", "very large chunks raise peak memory and rollback cost"})
	}
	return issues
}

func validateCheckpoint(c Checkpoint) []Issue {
	if c.Resume && strings.TrimSpace(c.Dir) == "" {
		return []Issue{{SeverityError, "checkpoint.dir", "resume requires checkpoint.dir"}}
	}
	return nil
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.ToLower(m.Backend) {
	case "", "none":
	case "pushgateway", "prom", "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a URL"})
		}
	case "datadog", "dogstatsd":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog backend requires an agent address (host:port)"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend", fmt.Sprintf("unsupported metrics backend %q", m.Backend)})
	}
	return issues
}
