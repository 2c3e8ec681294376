package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"chaletd/internal/avail"
	"chaletd/internal/config"
	"chaletd/internal/date"
	"chaletd/internal/ics"
	appLog "chaletd/internal/log"
	"chaletd/internal/mailer"
	"chaletd/internal/message"
	"chaletd/internal/sched"
	"chaletd/internal/store"
	"chaletd/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	dryRun     bool
	verbose    bool
}

func main() {
	flags := parseFlags()
	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("chaletd starting", "version", "0.3.0")

	// .env is optional; SMTP credentials may live there instead of the
	// config file.
	_ = godotenv.Load()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone; falling back to local", err, "timezone", conf.Timezone)
		loc = time.Local
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"notify_cron", conf.NotifyCron,
		"refresh_cron", conf.RefreshCron,
		"feed_count", len(conf.Feeds),
		"data_dir", conf.DataDir,
		"once", flags.once,
		"dry_run", flags.dryRun,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	reservations := store.NewReservations(conf.ReservationsPath())
	bookings := store.NewBookings(conf.BookingsPath())

	sources := make([]ics.Source, 0, len(conf.Feeds))
	for _, f := range conf.Feeds {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			if f.Name != "" {
				id = f.Name
			} else {
				id = f.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, URL: f.URL})
	}

	fetcher := ics.NewFetcher(time.Duration(conf.FetchTimeoutSeconds) * time.Second)
	aggregator := avail.New(fetcher, sources, bookings, conf.HorizonDays)

	var messenger mailer.Messenger
	if flags.dryRun {
		messenger = &mailer.LogMailer{Est: message.Establishment{
			Name:      conf.Establishment.Name,
			DoorCode:  conf.Establishment.DoorCode,
			ReviewURL: conf.Establishment.ReviewURL,
		}}
	} else {
		messenger = mailer.NewSMTP(conf.SMTP, conf.Establishment)
	}
	scheduler := sched.New(reservations, messenger)

	runNotifications := func() {
		today := date.Today(loc)
		if _, err := scheduler.Run(ctx, today); err != nil {
			appLog.Error("notification run failed", err, "day", today.String())
		}
	}

	// Initial refresh at startup; thereafter both triggers run on cron.
	aggregator.Refresh(ctx)

	if flags.once {
		runNotifications()
		appLog.Info("chaletd exiting (once)")
		return
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(conf.NotifyCron, runNotifications); err != nil {
		appLog.Error("invalid notify_cron", err, "spec", conf.NotifyCron)
		os.Exit(1)
	}
	if _, err := c.AddFunc(conf.RefreshCron, func() { aggregator.Refresh(ctx) }); err != nil {
		appLog.Error("invalid refresh_cron", err, "spec", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()

	server := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, aggregator, reservations, bookings).Handler(),
	}
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	cronCtx := c.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	<-cronCtx.Done()

	appLog.Info("chaletd exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh and one notification pass, then exit")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Render and log messages instead of sending email")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
