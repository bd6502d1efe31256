package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/flipper/app/config"
	"github.com/umputun/flipper/app/flipper"
	"github.com/umputun/flipper/app/notify"
	"github.com/umputun/flipper/app/store"
	"github.com/umputun/flipper/app/web"
)

var opts struct {
	Config         string        `short:"c" long:"config" env:"FLIPPER_CONFIG" default:"flipper.yml" description:"tasks config file"`
	Update         bool          `short:"u" long:"update" env:"FLIPPER_UPDATE" description:"reload tasks config on change"`
	UpdateInterval time.Duration `long:"update-interval" env:"FLIPPER_UPDATE_INTERVAL" default:"10s" description:"config check interval"`

	Store struct {
		Type          string `long:"type" env:"TYPE" choice:"file" choice:"sqlite" choice:"redis" default:"file" description:"state storage type"`
		Path          string `long:"path" env:"PATH" description:"state file or sqlite db, task_states.json or flipper.db by default"`
		RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"redis address"`
		RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"redis password"`
		RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"redis db"`
		RedisKey      string `long:"redis-key" env:"REDIS_KEY" default:"flipper:states" description:"redis key for states"`
	} `group:"store" namespace:"store" env-namespace:"FLIPPER_STORE"`

	Save struct {
		Attempts int           `long:"attempts" env:"ATTEMPTS" default:"3" description:"how many times to try a failed save"`
		Duration time.Duration `long:"duration" env:"DURATION" default:"500ms" description:"initial retry delay"`
		Factor   float64       `long:"factor" env:"FACTOR" default:"2" description:"backoff factor"`
	} `group:"save" namespace:"save" env-namespace:"FLIPPER_SAVE"`

	Web struct {
		Address      string        `long:"address" env:"ADDRESS" default:":8080" description:"web server listen address"`
		BaseURL      string        `long:"base-url" env:"BASE_URL" description:"base URL path for reverse proxy (e.g., /flipper)"`
		Hostname     string        `long:"hostname" env:"HOSTNAME" description:"hostname to show on the dashboard"`
		FlipLimit    float64       `long:"flip-limit" env:"FLIP_LIMIT" default:"5" description:"max flips per second per client, 0 to disable"`
		PollInterval time.Duration `long:"poll-interval" env:"POLL_INTERVAL" default:"3s" description:"dashboard refresh check interval"`
	} `group:"web" namespace:"web" env-namespace:"FLIPPER_WEB"`

	Notify struct {
		Webhooks      []string      `long:"webhook" env:"WEBHOOK" env-delim:"," description:"webhook url(s) for flip notifications"`
		SlackToken    string        `long:"slack-token" env:"SLACK_TOKEN" description:"slack token"`
		SlackChannels []string      `long:"slack-channel" env:"SLACK_CHANNEL" env-delim:"," description:"slack channel(s)"`
		EmailTo       []string      `long:"email-to" env:"EMAIL_TO" env-delim:"," description:"email(s) for flip notifications"`
		EmailFrom     string        `long:"email-from" env:"EMAIL_FROM" description:"from email, flipper@hostname by default"`
		SMTPHost      string        `long:"smtp-host" env:"SMTP_HOST" description:"SMTP host"`
		SMTPPort      int           `long:"smtp-port" env:"SMTP_PORT" default:"25" description:"SMTP port"`
		SMTPUsername  string        `long:"smtp-username" env:"SMTP_USERNAME" description:"SMTP user name"`
		SMTPPassword  string        `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
		SMTPTLS       bool          `long:"smtp-tls" env:"SMTP_TLS" description:"enable SMTP TLS"`
		Timeout       time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"notification timeout"`
	} `group:"notify" namespace:"notify" env-namespace:"FLIPPER_NOTIFY"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"flipper.log" description:"file to write logs to"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"maximum size in megabytes of the log file before it gets rotated"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"maximum number of old log files to retain"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"maximum number of days to retain old log files"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"FLIPPER_LOG"`

	Dbg bool `long:"dbg" env:"FLIPPER_DEBUG" description:"debug mode"`
}

var revision = "unknown"

// stateStore is a flipper store which has to be closed on exit
type stateStore interface {
	flipper.Store
	Close() error
}

func main() {
	fmt.Printf("flipper %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgFile := config.New(opts.Config, opts.UpdateInterval)
	cfg, err := cfgFile.LoadOrDefault()
	if err != nil {
		return fmt.Errorf("can't load tasks config: %w", err)
	}

	st, err := makeStore(ctx)
	if err != nil {
		return fmt.Errorf("can't make state store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("[WARN] can't close state store, %v", err)
		}
	}()

	params := flipper.Params{
		Config: cfg,
		Store:  st,
		Repeater: repeater.New(&strategy.Backoff{Repeats: opts.Save.Attempts, Duration: opts.Save.Duration,
			Factor: opts.Save.Factor, Jitter: true}),
	}
	if notif := makeNotifier(); notif != nil {
		params.Notifier = notif
	}
	if opts.Update {
		params.Watcher = cfgFile
	}
	svc := flipper.NewService(params)

	srv, err := web.New(web.Config{
		Flipper:      svc,
		BaseURL:      validateBaseURL(opts.Web.BaseURL),
		Hostname:     makeHostName(),
		Version:      revision,
		FlipLimit:    opts.Web.FlipLimit,
		PollInterval: opts.Web.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("can't make web server: %w", err)
	}

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	err = srv.Run(ctx, opts.Web.Address)
	cancel()
	<-done // wait for pending saves
	return err
}

func makeStore(ctx context.Context) (stateStore, error) {
	switch opts.Store.Type {
	case "sqlite":
		return store.NewSQLite(storePath("flipper.db"))
	case "redis":
		return store.NewRedis(ctx, store.RedisParams{Addr: opts.Store.RedisAddr, Password: opts.Store.RedisPassword,
			DB: opts.Store.RedisDB, Key: opts.Store.RedisKey})
	default:
		return store.NewJSONFile(storePath("task_states.json"))
	}
}

func storePath(def string) string {
	if opts.Store.Path != "" {
		return opts.Store.Path
	}
	return def
}

func makeNotifier() *notify.Service {
	from := opts.Notify.EmailFrom
	if from == "" && len(opts.Notify.EmailTo) > 0 {
		from = "flipper@" + makeHostName()
	}
	return notify.NewService(notify.Params{
		Webhooks:      opts.Notify.Webhooks,
		SlackToken:    opts.Notify.SlackToken,
		SlackChannels: opts.Notify.SlackChannels,
		EmailTo:       opts.Notify.EmailTo,
		EmailFrom:     from,
		SMTP: notify.SMTPParams{
			Host:     opts.Notify.SMTPHost,
			Port:     opts.Notify.SMTPPort,
			TLS:      opts.Notify.SMTPTLS,
			Username: opts.Notify.SMTPUsername,
			Password: opts.Notify.SMTPPassword,
		},
		Timeout: opts.Notify.Timeout,
	})
}

func makeHostName() string {
	if opts.Web.Hostname != "" {
		return opts.Web.Hostname
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// validateBaseURL normalizes base URL, "/" and empty mean no base URL
func validateBaseURL(u string) string {
	u = strings.TrimSuffix(strings.TrimSpace(u), "/")
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return u
}

// setupLogs configures lgr and returns the writer used for logs
func setupLogs() io.Writer {
	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	logOpts := []log.Option{log.Msec, log.LevelBraces, log.Out(out), log.Err(out)}
	if opts.Dbg {
		logOpts = append(logOpts, log.Debug, log.CallerFunc, log.CallerPkg, log.CallerFile)
	}
	var secrets []string
	for _, s := range []string{opts.Store.RedisPassword, opts.Notify.SlackToken, opts.Notify.SMTPPassword} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, log.Secret(secrets...))
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
			log.Printf("[INFO] signal %s received, terminating", sig)
			cancel() // terminate on SIGTERM and SIGINT
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
