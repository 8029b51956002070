package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when a value is left unset in the file and the
// environment.
const (
	DefaultJob          = "propetl"
	DefaultTable        = "properties"
	DefaultChunkSize    = 5000
	DefaultMaxErrors    = 100
	DefaultExportDir    = "data/exports"
	DefaultExportPrefix = "bcpa_export"
	DefaultServerAddr   = "127.0.0.1:8000"
	DefaultDataDir      = "data"
)

// Load reads a pipeline file (JSON, or YAML for .yaml/.yml), fills unset
// values from the process environment and applies defaults.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	p, err := Decode(b, filepath.Ext(path))
	if err != nil {
		return Pipeline{}, err
	}
	ApplyEnv(&p, os.Getenv)
	ApplyDefaults(&p)
	return p, nil
}

// Decode parses raw pipeline bytes; ext selects YAML (".yaml", ".yml") or
// JSON (anything else).
func Decode(b []byte, ext string) (Pipeline, error) {
	var p Pipeline
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &p); err != nil {
			return Pipeline{}, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		if err := json.NewDecoder(bytes.NewReader(b)).Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("decode json config: %w", err)
		}
	}
	return p, nil
}

// ApplyEnv fills unset values from environment variables (12-factor style).
// Values present in the pipeline file win over the environment.
func ApplyEnv(p *Pipeline, getenv func(string) string) {
	p.Runtime.ChunkSize = pickInt(p.Runtime.ChunkSize, getenvInt(getenv, "PROPETL_CHUNK_SIZE", 0))
	p.Runtime.MaxErrors = pickInt(p.Runtime.MaxErrors, getenvInt(getenv, "PROPETL_MAX_ERRORS", 0))
	p.Storage.Kind = pickString(p.Storage.Kind, getenv("PROPETL_STORAGE_KIND"))
	p.Storage.DB.DSN = pickString(p.Storage.DB.DSN, getenv("PROPETL_DSN"))
	p.Checkpoint.Dir = pickString(p.Checkpoint.Dir, getenv("PROPETL_CHECKPOINT_DIR"))
	p.Metrics.Backend = pickString(p.Metrics.Backend, getenv("METRICS_BACKEND"))
	p.Metrics.PushgatewayURL = pickString(p.Metrics.PushgatewayURL, getenv("PUSHGATEWAY_URL"))
	p.Metrics.DatadogAddr = pickString(p.Metrics.DatadogAddr, getenv("DD_AGENT_ADDR"))
}

// ApplyDefaults fills any remaining zero values.
func ApplyDefaults(p *Pipeline) {
	p.Job = pickString(p.Job, DefaultJob)
	p.Source.Kind = pickString(p.Source.Kind, "file")
	p.Parser.Kind = pickString(p.Parser.Kind, "csv")
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	p.Storage.Kind = pickString(p.Storage.Kind, "sqlite")
	p.Storage.DB.Table = pickString(p.Storage.DB.Table, DefaultTable)
	p.Runtime.ChunkSize = pickInt(p.Runtime.ChunkSize, DefaultChunkSize)
	p.Runtime.MaxErrors = pickInt(p.Runtime.MaxErrors, DefaultMaxErrors)
	p.Export.Dir = pickString(p.Export.Dir, DefaultExportDir)
	p.Export.Prefix = pickString(p.Export.Prefix, DefaultExportPrefix)
	p.Metrics.Backend = pickString(p.Metrics.Backend, "none")
	p.Server.Addr = pickString(p.Server.Addr, DefaultServerAddr)
	p.Server.DataDir = pickString(p.Server.DataDir, DefaultDataDir)
}

func getenvInt(getenv func(string) string, k string, def int) int {
	if v := getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func pickString(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
