package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/go-pkgz/syncs"
	"github.com/joho/godotenv"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/jobtrack/app/backup"
	"github.com/umputun/jobtrack/app/jobs"
	"github.com/umputun/jobtrack/app/notify"
	"github.com/umputun/jobtrack/app/scraper"
	"github.com/umputun/jobtrack/app/store"
	"github.com/umputun/jobtrack/app/tools"
	"github.com/umputun/jobtrack/app/web"
)

var opts struct {
	Store struct {
		Type string `long:"type" env:"TYPE" choice:"json" choice:"yaml" choice:"sqlite" default:"json" description:"storage type"`
		Path string `long:"path" env:"PATH" default:"jobs.json" description:"storage file or database location"`
	} `group:"store" namespace:"store" env-namespace:"JOBTRACK_STORE"`

	DeleteRole string `long:"delete-role" env:"JOBTRACK_DELETE_ROLE" choice:"first" choice:"all" default:"first" description:"delete by role removes the first match or all matches"`

	Web struct {
		Address   string  `long:"address" env:"ADDRESS" default:":8080" description:"web server listen address"`
		AuthHash  string  `long:"auth-hash" env:"AUTH_HASH" description:"bcrypt hash for basic auth, user jobtrack"`
		RateLimit float64 `long:"rate-limit" env:"RATE_LIMIT" default:"5" description:"requests per second per ip for tools and scrape, 0 to disable"`
	} `group:"web" namespace:"web" env-namespace:"JOBTRACK_WEB"`

	Scrape struct {
		Timeout        time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"page fetch timeout"`
		Attempts       int           `long:"attempts" env:"ATTEMPTS" default:"1" description:"fetch attempts"`
		Duration       time.Duration `long:"duration" env:"DURATION" default:"1s" description:"initial retry delay"`
		Factor         float64       `long:"factor" env:"FACTOR" default:"2" description:"retry backoff factor"`
		MaxDescription int           `long:"max-description" env:"MAX_DESCRIPTION" default:"0" description:"max description length in characters, 0 for no limit"`
		Browser        bool          `long:"browser" env:"BROWSER" description:"render pages in headless chromium"`
		BrowserInstall bool          `long:"browser-install" env:"BROWSER_INSTALL" description:"download chromium if missing"`
		UserAgent      string        `long:"user-agent" env:"USER_AGENT" description:"user agent for page fetches"`
	} `group:"scrape" namespace:"scrape" env-namespace:"JOBTRACK_SCRAPE"`

	Notify struct {
		Webhooks []string      `long:"webhook" env:"WEBHOOK" env-delim:"," description:"webhook url(s) notified about job changes"`
		Headers  []string      `long:"header" env:"HEADER" env-delim:"|" description:"extra webhook header(s), Name:Value, env list separated by |"`
		Timeout  time.Duration `long:"timeout" env:"TIMEOUT" default:"5s" description:"webhook request timeout"`
	} `group:"notify" namespace:"notify" env-namespace:"JOBTRACK_NOTIFY"`

	Backup struct {
		Dir  string `long:"dir" env:"DIR" description:"backup directory, disabled if empty"`
		Spec string `long:"spec" env:"SPEC" default:"@daily" description:"backup schedule, cron spec"`
		Keep int    `long:"keep" env:"KEEP" default:"7" description:"backups to keep"`
	} `group:"backup" namespace:"backup" env-namespace:"JOBTRACK_BACKUP"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"jobtrack.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in megabytes"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max days to retain old log files"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of old log files to keep"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"JOBTRACK_LOG"`

	Tools bool `long:"tools" description:"print agent tool definitions and exit"`
	Dbg   bool `long:"dbg" env:"JOBTRACK_DEBUG" description:"debug mode"`
}

var revision = "unknown"

func main() {
	fmt.Printf("jobtrack %s\n", revision)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("failed to load .env: %v\n", err)
	}
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}

	if opts.Tools {
		if err := printTools(os.Stdout); err != nil {
			fmt.Printf("failed to print tools: %v\n", err)
			os.Exit(1)
		}
		return
	}

	out := setupLogs()
	if closer, ok := out.(io.Closer); ok {
		defer closer.Close()
	}

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT, SIGTERM and SIGINT

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
	log.Printf("[INFO] jobtrack stopped")
}

// run wires all components and blocks until ctx is canceled or the server fails
func run(ctx context.Context) error {
	st, closeStore, err := makeStore()
	if err != nil {
		return err
	}
	defer closeStore()

	policy, err := jobs.ParseRolePolicy(opts.DeleteRole)
	if err != nil {
		return err
	}
	jobsCfg := jobs.Config{RolePolicy: policy}
	webhooks := notify.NewWebhooks(notify.Params{URLs: opts.Notify.Webhooks, Headers: opts.Notify.Headers,
		Timeout: opts.Notify.Timeout})
	if webhooks != nil {
		jobsCfg.Listener = webhooks
		defer webhooks.Wait()
	}
	svc := jobs.NewService(st, jobsCfg)

	// read storage once, malformed file should stop the start
	list, err := svc.List()
	if err != nil {
		return fmt.Errorf("can't load jobs: %w", err)
	}
	log.Printf("[INFO] %d job(s) in %s storage %s", len(list), opts.Store.Type, opts.Store.Path)

	scr, closeScraper := makeScraper()
	defer closeScraper()

	reg := tools.NewRegistry()
	if err := tools.RegisterJobTools(reg, svc, scr); err != nil {
		return fmt.Errorf("can't register tools: %w", err)
	}

	srv, err := web.New(web.Config{
		Jobs:      svc,
		Scraper:   scr,
		Tools:     reg,
		Version:   revision,
		AuthHash:  opts.Web.AuthHash,
		RateLimit: opts.Web.RateLimit,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	grp := syncs.NewErrSizedGroup(2)
	grp.Go(func() error {
		defer cancel()
		return srv.Run(ctx, opts.Web.Address)
	})
	if opts.Backup.Dir != "" {
		bk := backup.New(svc, backup.Params{Dir: opts.Backup.Dir, Keep: opts.Backup.Keep})
		grp.Go(func() error {
			defer cancel()
			return bk.Run(ctx, opts.Backup.Spec)
		})
	}
	return grp.Wait()
}

// makeStore opens storage backend by type, the returned func closes it
func makeStore() (jobs.Store, func(), error) {
	if opts.Store.Type == "sqlite" {
		db, err := store.NewSQLite(opts.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("can't open sqlite store %s: %w", opts.Store.Path, err)
		}
		return db, func() {
			if err := db.Close(); err != nil {
				log.Printf("[WARN] failed to close sqlite store: %v", err)
			}
		}, nil
	}

	codec, err := store.CodecFor(opts.Store.Type)
	if err != nil {
		return nil, nil, err
	}
	return store.NewFile(opts.Store.Path, codec), func() {}, nil
}

// makeScraper makes scraper with http or browser fetcher, the returned func stops the browser
func makeScraper() (*scraper.Scraper, func()) {
	userAgent := opts.Scrape.UserAgent
	if userAgent == "" {
		userAgent = "jobtrack/" + revision
	}

	var fetcher scraper.Fetcher = &scraper.HTTPFetcher{UserAgent: userAgent}
	closeFn := func() {}
	if opts.Scrape.Browser {
		bf := &scraper.BrowserFetcher{Install: opts.Scrape.BrowserInstall}
		fetcher = bf
		closeFn = func() {
			if err := bf.Close(); err != nil {
				log.Printf("[WARN] failed to stop browser: %v", err)
			}
		}
		log.Printf("[INFO] pages rendered with headless chromium")
	}

	params := scraper.Params{Fetcher: fetcher, Timeout: opts.Scrape.Timeout, MaxDescription: opts.Scrape.MaxDescription}
	if opts.Scrape.Attempts > 1 {
		params.Repeater = repeater.New(&strategy.Backoff{Repeats: opts.Scrape.Attempts, Duration: opts.Scrape.Duration,
			Factor: opts.Scrape.Factor, Jitter: true})
	}
	return scraper.New(params), closeFn
}

// printTools writes tool definitions for the agent runtime
func printTools(w io.Writer) error {
	reg := tools.NewRegistry()
	scr, _ := makeScraper()
	if err := tools.RegisterJobTools(reg, nil, scr); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reg.Definitions())
}

// setupLogs configures lgr and returns the writer logs go to
func setupLogs() io.Writer {
	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxAge:     opts.Log.MaxAge,
			MaxBackups: opts.Log.MaxBackups,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	logOpts := []log.Option{log.Msec, log.Out(out), log.Err(out)}
	if opts.Dbg {
		logOpts = append(logOpts, log.Debug, log.CallerFunc, log.CallerPkg, log.CallerFile)
	}
	log.Setup(logOpts...)
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] %s received, shutting down", strings.ToUpper(sig.String()))
			cancel()
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
