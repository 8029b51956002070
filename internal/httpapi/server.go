// Package httpapi exposes import and export over HTTP.
//
// Routes:
//
//	POST /import-export/import              multipart "file" (.csv) upload, imported then deleted
//	POST /import-export/import-from-path    ?file_path=... on the server's filesystem
//	GET  /import-export/status              progress of the running import, if any
//	GET  /import-export/export              ?city=&use_type=&min_value=&absentee= -> CSV download
//	GET  /import-export/sample-headers      expected column names
//	GET  /health
//
// Only one import runs at a time; a second request gets 409 Conflict.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"propetl/internal/export"
	"propetl/internal/importer"
	"propetl/internal/parser/csv"
	"propetl/internal/progress"
	"propetl/internal/property"
	"propetl/internal/storage"
)

// maxResponseErrors bounds the error details returned by the import routes.
const maxResponseErrors = 10

// Config controls the server.
type Config struct {
	Addr         string
	DataDir      string // upload staging
	ExportDir    string
	ExportPrefix string
	StorageKind  string // reported by /health
	Job          string
	Import       importer.Options
}

// Server serves the import/export API.
type Server struct {
	cfg    Config
	store  storage.Store
	engine *importer.Engine
	log    *zap.Logger
	router *mux.Router

	importMu sync.Mutex // held for the duration of an import

	statusMu sync.Mutex
	running  bool
	last     progress.Snapshot
}

// NewServer wires routes for store.
func NewServer(cfg Config, store storage.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		engine: importer.NewEngine(store, log, cfg.Job),
		log:    log,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	ie := s.router.PathPrefix("/import-export").Subrouter()
	ie.HandleFunc("/import", s.handleImportUpload).Methods(http.MethodPost)
	ie.HandleFunc("/import-from-path", s.handleImportFromPath).Methods(http.MethodPost)
	ie.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	ie.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	ie.HandleFunc("/sample-headers", s.handleSampleHeaders).Methods(http.MethodGet)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// importResponse is the JSON body of a finished import.
type importResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	TotalRows  int      `json:"total_rows"`
	Imported   int      `json:"imported"`
	Updated    int      `json:"updated"`
	Skipped    int      `json:"skipped"`
	ErrorCount int      `json:"error_count"`
	Errors     []string `json:"errors"`
}

func (s *Server) handleImportUpload(w http.ResponseWriter, r *http.Request) {
	if !s.importMu.TryLock() {
		respondError(w, "an import is already running", http.StatusConflict)
		return
	}
	defer s.importMu.Unlock()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		respondError(w, "missing multipart field \"file\"", http.StatusBadRequest)
		return
	}
	defer f.Close()
	if !isCSV(hdr.Filename) {
		respondError(w, "Only CSV files are supported", http.StatusBadRequest)
		return
	}

	tmp, err := s.stage(f)
	if err != nil {
		s.log.Error("stage upload", zap.Error(err))
		respondError(w, "Import failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer os.Remove(tmp)

	s.runImport(r.Context(), w, tmp)
}

// stage copies an upload to temp_<uuid>.csv in the data directory.
func (s *Server) stage(src io.Reader) (string, error) {
	if err := os.MkdirAll(s.cfg.DataDir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(s.cfg.DataDir, "temp_"+strings.ReplaceAll(uuid.NewString(), "-", "")+".csv")
	out, err := os.Create(p)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(p)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(p)
		return "", err
	}
	return p, nil
}

func (s *Server) handleImportFromPath(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("file_path")
	if p == "" {
		respondError(w, "file_path is required", http.StatusBadRequest)
		return
	}
	if _, err := os.Stat(p); err != nil {
		respondError(w, "File not found: "+p, http.StatusNotFound)
		return
	}
	if !isCSV(p) {
		respondError(w, "Only CSV files are supported", http.StatusBadRequest)
		return
	}
	if !s.importMu.TryLock() {
		respondError(w, "an import is already running", http.StatusConflict)
		return
	}
	defer s.importMu.Unlock()

	s.runImport(r.Context(), w, p)
}

func (s *Server) runImport(ctx context.Context, w http.ResponseWriter, path string) {
	opt := s.cfg.Import
	opt.Sinks = append(append([]progress.Sink(nil), opt.Sinks...), progress.SinkFunc(s.observe))
	s.setRunning(true)
	defer s.setRunning(false)

	res, err := s.engine.Import(ctx, path, opt)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, csv.ErrNoFolioColumn), errors.Is(err, csv.ErrHeader):
			status = http.StatusBadRequest
		case errors.Is(err, importer.ErrSourceNotFound):
			status = http.StatusNotFound
		}
		s.log.Warn("import failed", zap.String("path", path), zap.Error(err))
		if status == http.StatusInternalServerError {
			respondError(w, "Import failed: "+err.Error(), status)
		} else {
			respondError(w, err.Error(), status)
		}
		return
	}

	resp := importResponse{
		Success:    true,
		Message:    "Import completed successfully",
		TotalRows:  res.Total,
		Imported:   res.Inserted,
		Updated:    res.Updated,
		Skipped:    res.Skipped,
		ErrorCount: res.ErrorCount,
		Errors:     []string{},
	}
	for i, e := range res.Errors {
		if i == maxResponseErrors {
			break
		}
		resp.Errors = append(resp.Errors, e.String())
	}
	respondJSON(w, resp)
}

func (s *Server) observe(sn progress.Snapshot) {
	s.statusMu.Lock()
	s.last = sn
	s.statusMu.Unlock()
}

func (s *Server) setRunning(v bool) {
	s.statusMu.Lock()
	s.running = v
	if v {
		s.last = progress.Snapshot{}
	}
	s.statusMu.Unlock()
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.statusMu.Lock()
	body := struct {
		Running bool              `json:"running"`
		Last    progress.Snapshot `json:"last"`
	}{s.running, s.last}
	s.statusMu.Unlock()
	respondJSON(w, body)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	path, err := export.Run(r.Context(), s.store, f, export.Options{
		Dir:    s.cfg.ExportDir,
		Prefix: s.cfg.ExportPrefix,
		Job:    s.cfg.Job,
		Log:    s.log,
	})
	if err != nil {
		respondError(w, "Export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// parseFilter reads the export query. A zero min_value means no minimum.
func parseFilter(r *http.Request) (export.Filter, error) {
	q := r.URL.Query()
	f := export.Filter{City: q.Get("city"), UseType: q.Get("use_type")}
	if v := q.Get("min_value"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, fmt.Errorf("min_value: %q is not a number", v)
		}
		if n != 0 {
			f.MinValue = &n
		}
	}
	if v := q.Get("absentee"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("absentee: %q is not a boolean", v)
		}
		f.Absentee = &b
	}
	return f, nil
}

func (s *Server) handleSampleHeaders(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, sampleHeaders())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]string{"status": "ok", "storage": s.cfg.StorageKind})
}

// sampleHeaders groups the importable columns for clients.
func sampleHeaders() map[string]any {
	names := func(fs ...property.Field) []string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = f.String()
		}
		return out
	}
	return map[string]any{
		"required":         []string{"folio_number (or parcel_id)"},
		"owner_info":       names(property.NameLine1, property.NameLine2),
		"mailing_address":  names(property.MailingAddressLine1, property.MailingCity, property.MailingState, property.MailingZip),
		"situs_address":    names(property.SitusStreetNumber, property.SitusStreetName, property.SitusStreetType, property.SitusCity, property.SitusZip),
		"property_details": names(property.UseCode, property.UseType, property.BldgYearBuilt, property.BldgTotSqFootage, property.Beds, property.Baths),
		"values":           names(property.JustLandValue, property.JustBuildingValue, property.JustValue),
		"exemptions":       names(property.HomesteadFlag, property.ExemptionAmount, property.OwnersDomicile),
		"sale_history":     names(property.SaleDate1, property.DeedType1, property.StampAmount1),
		"all_fields":       names(property.SourceFields()...),
		"notes":            "Column names are flexible - the system will attempt to match common variations",
	}
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
