// Command propetl ingests county property-appraiser exports into a SQL store
// and exports filtered extracts back to CSV.
//
// Usage:
//
//	propetl import   [-config file] [-resume] path/to/export.csv
//	propetl export   [-config file] [-city X] [-use-type Y] [-min-value N] [-absentee true|false]
//	propetl serve    [-config file] [-addr host:port]
//	propetl validate [-config file]
//
// Every subcommand also accepts -v, -storage, -dsn, -metrics-backend and
// -pushgateway-url.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"propetl/internal/config"
	"propetl/internal/export"
	"propetl/internal/httpapi"
	"propetl/internal/importer"

	// register all backends with the storage factory.
	_ "propetl/internal/storage/all"
)

const usage = `usage: propetl <import|export|serve|validate> [flags]`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// common holds the flags shared by every subcommand.
type common struct {
	cfgPath        string
	verbose        bool
	storageKind    string
	dsn            string
	metricsBackend string
	pushgatewayURL string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.cfgPath, "config", "", "pipeline config (JSON or YAML); empty uses env and defaults")
	fs.BoolVar(&c.verbose, "v", false, "enable verbose (development) logs")
	fs.StringVar(&c.storageKind, "storage", "", "storage kind override (sqlite, postgres, mssql, memory)")
	fs.StringVar(&c.dsn, "dsn", "", "storage DSN override")
	fs.StringVar(&c.metricsBackend, "metrics-backend", "", "metrics backend override (pushgateway, datadog, none)")
	fs.StringVar(&c.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL override")
}

func (c *common) apply(p *config.Pipeline) {
	if c.storageKind != "" {
		p.Storage.Kind = c.storageKind
	}
	if c.dsn != "" {
		p.Storage.DB.DSN = c.dsn
	}
	if c.metricsBackend != "" {
		p.Metrics.Backend = c.metricsBackend
	}
	if c.pushgatewayURL != "" {
		p.Metrics.PushgatewayURL = c.pushgatewayURL
	}
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	cmd, args := args[0], args[1:]

	var c common
	fs := flag.NewFlagSet("propetl "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c.register(fs)

	var (
		resume   bool
		city     string
		useType  string
		minValue float64
		absentee string
		outDir   string
		addr     string
	)
	switch cmd {
	case "import":
		fs.BoolVar(&resume, "resume", false, "resume from a checkpoint of the same file")
	case "export":
		fs.StringVar(&city, "city", "", "situs city equality filter")
		fs.StringVar(&useType, "use-type", "", "use type equality filter")
		fs.Float64Var(&minValue, "min-value", 0, "minimum just value (0 = no minimum)")
		fs.StringVar(&absentee, "absentee", "", "absentee owner filter: true or false")
		fs.StringVar(&outDir, "out", "", "output directory (overrides export.dir)")
	case "serve":
		fs.StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	case "validate":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s\n", cmd, usage)
		return 2
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	p, err := loadPipeline(c.cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	c.apply(&p)
	if err := checkPipeline(p, stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if cmd == "validate" {
		fmt.Fprintf(stdout, "configuration is valid: %s\n", displayPath(c.cfgPath))
		return 0
	}

	log, err := newLogger(c.verbose)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer log.Sync()

	flush := setupMetrics(p, log)
	defer flush()

	store, err := openStore(ctx, p)
	if err != nil {
		log.Error("open store", zap.Error(err))
		return 1
	}
	defer store.Close()

	switch cmd {
	case "import":
		path := p.Source.File.Path
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		if path == "" {
			fmt.Fprintln(stderr, "import: no source file given")
			return 2
		}
		opt := importOptions(p, log)
		opt.Resume = opt.Resume || resume
		res, err := importer.NewEngine(store, log, p.Job).Import(ctx, path, opt)
		if res != nil {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(res)
		}
		if err != nil {
			log.Error("import failed", zap.Error(err))
			if errors.Is(err, context.Canceled) {
				return 130
			}
			return 1
		}
		return 0

	case "export":
		f := export.Filter{City: city, UseType: useType}
		if minValue != 0 {
			f.MinValue = &minValue
		}
		if absentee != "" {
			b, err := strconv.ParseBool(absentee)
			if err != nil {
				fmt.Fprintf(stderr, "export: -absentee %q is not a boolean\n", absentee)
				return 2
			}
			f.Absentee = &b
		}
		dir := p.Export.Dir
		if outDir != "" {
			dir = outDir
		}
		out, err := export.Run(ctx, store, f, export.Options{Dir: dir, Prefix: p.Export.Prefix, Job: p.Job, Log: log})
		if err != nil {
			log.Error("export failed", zap.Error(err))
			return 1
		}
		fmt.Fprintln(stdout, out)
		return 0

	case "serve":
		if addr != "" {
			p.Server.Addr = addr
		}
		srv := httpapi.NewServer(serverConfig(p, log), store, log)
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Error("serve", zap.Error(err))
			return 1
		}
		return 0
	}
	return 2
}

func displayPath(p string) string {
	if p == "" {
		return "(environment and defaults)"
	}
	return p
}
