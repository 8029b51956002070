// Package config defines the pipeline configuration model for propetl.
//
// A pipeline file describes one ingestion target: where the assessor export
// comes from, how it is parsed, which store receives the records, and the
// runtime knobs (chunk size, error cap, checkpointing, export location,
// metrics). Files may be JSON or YAML; both decode into the same Pipeline.
//
// Example (trimmed):
//
//	{
//	  "job":     "bcpa_weekly",
//	  "source":  { "kind": "file", "file": { "path": "data/bcpa.csv" } },
//	  "parser":  { "kind": "csv", "options": { "comma": ",", "header_map": { "acct": "folio_number" } } },
//	  "storage": { "kind": "sqlite", "db": { "dsn": "file:data/props.db", "table": "properties", "auto_create_table": true } },
//	  "runtime": { "chunk_size": 5000, "max_errors": 100 }
//	}
package config

import "encoding/json"

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the pipeline for logs and metrics grouping.
	Job string `json:"job" yaml:"job"`

	Source     Source        `json:"source" yaml:"source"`
	Parser     Parser        `json:"parser" yaml:"parser"`
	Storage    Storage       `json:"storage" yaml:"storage"`
	Runtime    RuntimeConfig `json:"runtime" yaml:"runtime"`
	Checkpoint Checkpoint    `json:"checkpoint" yaml:"checkpoint"`
	Export     Export        `json:"export" yaml:"export"`
	Metrics    Metrics       `json:"metrics" yaml:"metrics"`
	Server     Server        `json:"server" yaml:"server"`
}

// RuntimeConfig controls chunking and error retention for an import run.
type RuntimeConfig struct {
	// ChunkSize is the number of data rows committed per store batch.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`
	// MaxErrors caps the detailed error list kept in the import result.
	MaxErrors int `json:"max_errors" yaml:"max_errors"`
	// ErrorLog, when set, is a CSV path receiving every row error.
	ErrorLog string `json:"error_log" yaml:"error_log"`
}

// Source identifies the data source. Current kind: "file".
type Source struct {
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
}

// SourceFile holds configuration for the "file" source kind. The path may be
// overridden per run (CLI argument or HTTP request).
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// Parser selects how the source is split into rows. Current kind: "csv".
//
// Recognised CSV options:
//
//	comma        (string; first rune; default ",")
//	lazy_quotes  (bool; default false; a cell that runs across lines with a bare quote is still a row error)
//	header_map   (object; extra synonym -> canonical field name)
//	null_tokens  (array of strings; replaces the default NA/N/A/null/NULL set)
type Parser struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Storage selects the store that receives upserted records.
type Storage struct {
	// Kind is one of "sqlite", "postgres", "mssql" or "memory".
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures a SQL store.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the (optionally schema-qualified) property table.
	Table string `json:"table" yaml:"table"`

	// AutoCreateTable creates the table and its indexes when missing.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// Checkpoint configures resumable imports.
type Checkpoint struct {
	// Dir holds one checkpoint file per source fingerprint. Empty disables
	// checkpointing.
	Dir string `json:"dir" yaml:"dir"`
	// Resume skips rows already committed by an interrupted run of the same
	// source.
	Resume bool `json:"resume" yaml:"resume"`
}

// Export configures where export artifacts are written.
type Export struct {
	Dir    string `json:"dir" yaml:"dir"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// Metrics selects a metrics backend: "pushgateway", "datadog" or "none".
type Metrics struct {
	Backend        string   `json:"backend" yaml:"backend"`
	PushgatewayURL string   `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr" yaml:"datadog_addr"`
	Namespace      string   `json:"namespace" yaml:"namespace"`
	Tags           []string `json:"tags" yaml:"tags"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr string `json:"addr" yaml:"addr"`
	// DataDir receives uploaded files while they are imported.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Options fetches typed values from free-form option maps. It performs only
// minimal coercion and returns the provided default when a key is absent or
// of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers arrive as float64,
// YAML integers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of
// strings. Returns nil when the key is missing or not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
