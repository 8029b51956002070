package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	return Pipeline{
		Job:    "bcpa",
		Source: Source{Kind: "file", File: SourceFile{Path: "in.csv"}},
		Parser: Parser{Kind: "csv", Options: Options{
			"header_map": map[string]any{"acct": "folio_number"},
		}},
		Storage: Storage{Kind: "sqlite", DB: DBConfig{
			DSN: "file::memory:", Table: "properties", AutoCreateTable: true,
		}},
		Runtime: RuntimeConfig{ChunkSize: 5000, MaxErrors: 100},
	}
}

func TestValidatePipeline_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidatePipeline(validPipeline()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidatePipeline_MissingJob(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Job = " "
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "job", "must not be empty") {
		t.Fatalf("expected job error; got %+v", issues)
	}
	if !HasErrors(issues) {
		t.Fatalf("HasErrors = false")
	}
}

func TestValidatePipeline_Table(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		mut  func(*Pipeline)
		sev  IssueSeverity
		path string
		msg  string
	}{
		{"unknown header target", func(p *Pipeline) {
			p.Parser.Options["header_map"] = map[string]any{"acct": "parcel_key"}
		}, SeverityError, "parser.options.header_map.acct", "unknown canonical field"},
		{"derived header target", func(p *Pipeline) {
			p.Parser.Options["header_map"] = map[string]any{"eq": "potential_equity"}
		}, SeverityError, "parser.options.header_map.eq", "computed"},
		{"bad comma", func(p *Pipeline) {
			p.Parser.Options["comma"] = ";;"
		}, SeverityError, "parser.options.comma", "single character"},
		{"quote comma", func(p *Pipeline) {
			p.Parser.Options["comma"] = "\""
		}, SeverityError, "parser.options.comma", "invalid delimiter"},
		{"xml parser", func(p *Pipeline) {
			p.Parser.Kind = "xml"
		}, SeverityError, "parser.kind", "unsupported"},
		{"missing dsn", func(p *Pipeline) {
			p.Storage.DB.DSN = ""
		}, SeverityError, "storage.db.dsn", "requires a dsn"},
		{"unknown storage", func(p *Pipeline) {
			p.Storage.Kind = "mysql"
		}, SeverityError, "storage.kind", "unsupported"},
		{"no auto create", func(p *Pipeline) {
			p.Storage.DB.AutoCreateTable = false
		}, SeverityWarning, "storage.db.auto_create_table", "already exist"},
		{"negative chunk", func(p *Pipeline) {
			p.Runtime.ChunkSize = -1
		}, SeverityError, "runtime.chunk_size", ">= 0"},
		{"resume without dir", func(p *Pipeline) {
			p.Checkpoint.Resume = true
		}, SeverityError, "checkpoint.dir", "resume requires"},
		{"pushgateway without url", func(p *Pipeline) {
			p.Metrics.Backend = "pushgateway"
		}, SeverityError, "metrics.pushgateway_url", "requires a URL"},
		{"unknown metrics", func(p *Pipeline) {
			p.Metrics.Backend = "graphite"
		}, SeverityError, "metrics.backend", "unsupported"},
		{"no source path", func(p *Pipeline) {
			p.Source.File.Path = ""
		}, SeverityWarning, "source.file.path", "per run"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := validPipeline()
			tc.mut(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("missing %s at %s (%q); got %+v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestValidatePipeline_MemoryNeedsNoDSN(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Storage = Storage{Kind: "memory"}
	if issues := ValidatePipeline(p); HasErrors(issues) {
		t.Fatalf("unexpected errors: %+v", issues)
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	iss := Issue{SeverityError, "storage.kind", "boom"}
	if got, want := iss.Error(), "error at storage.kind: boom"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
