package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"borkacal/internal/api"
	"borkacal/internal/calendar"
	"borkacal/internal/config"
	"borkacal/internal/ics"
	"borkacal/internal/links"
	appLog "borkacal/internal/log"
	"borkacal/internal/metrics"
	"borkacal/internal/model"
	"borkacal/internal/state"
	"borkacal/internal/web"
)

const version = "0.3.0"

type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	once       bool
	month      string
	delta      int
	category   string
	links      bool
	eventID    string
	whoami     bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.ApplyEnv(flags.envFile); err != nil {
		appLog.Error("failed to load env file", err, "env_file", flags.envFile)
		os.Exit(1)
	}
	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("borkacal starting",
		"version", version,
		"api_url", conf.APIURL,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"source", conf.Source,
		"once", flags.once,
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

	loc := conf.Location()
	client := api.NewClient(api.Options{
		Origin:       conf.APIURL,
		SessionToken: conf.SessionToken,
		CacheDir:     conf.CacheDir,
		Timeout:      conf.HTTPTimeout(),
	})

	var events state.EventSource = client
	if conf.Source == config.SourceICS {
		events = &ics.FeedSource{
			Fetcher:     client,
			Location:    loc,
			MonthsBack:  1,
			MonthsAhead: 12,
		}
	}

	store := state.New(events, client)
	defer store.Close()
	m := metrics.New()

	if flags.once {
		if err := runOnce(ctx, os.Stdout, conf, client, store, flags); err != nil {
			appLog.Error("run failed", err)
			os.Exit(1)
		}
		return
	}

	refresh := func() {
		err := store.Refresh(ctx)
		m.ObserveRefresh(err)
		if err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}
	refresh()

	sched := cron.New(cron.WithLocation(loc))
	if _, err := sched.AddFunc(conf.RefreshCron, refresh); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	if err := web.NewServer(conf, store, m).Run(ctx); err != nil {
		appLog.Error("HTTP server stopped", err)
	}
	appLog.Info("borkacal exiting")
}

// runOnce refreshes once, prints the requested month and any requested
// links, then returns.
func runOnce(ctx context.Context, out io.Writer, conf *config.Config, client *api.Client, store *state.Store, flags flagConfig) error {
	loc := conf.Location()

	if flags.whoami {
		u, err := client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s <%s> (%s)\n\n", u.Name, u.Email, u.Role)
	}

	if flags.eventID != "" {
		ev, err := client.Event(ctx, flags.eventID)
		if err != nil {
			return err
		}
		return printEventLinks(out, conf.APIURL, ev, loc)
	}

	if err := store.Refresh(ctx); err != nil {
		return err
	}

	ref := time.Now().In(loc)
	if flags.month != "" {
		m, err := calendar.ParseMonth(flags.month, loc)
		if err != nil {
			return err
		}
		ref = m
	}
	ref = calendar.AdvanceMonth(ref, flags.delta)

	grid, err := calendar.ProjectMonth(ref, store.Events(flags.category))
	if err != nil {
		return err
	}
	if grid.Dropped > 0 {
		appLog.Info("events without a usable start time were left out", "dropped", grid.Dropped)
	}
	if err := calendar.WriteText(out, grid, time.Now(), conf.MaxEventsPerDay); err != nil {
		return err
	}

	if flags.links {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Apple Kalender:  %s\n", links.SubscriptionWebcalURL(conf.APIURL))
		fmt.Fprintf(out, "Google Kalender: %s\n", links.SubscriptionGoogleCalendarURL(conf.APIURL))
	}
	return nil
}

func printEventLinks(out io.Writer, origin string, ev model.Event, loc *time.Location) error {
	quickAdd, err := links.QuickAddGoogleCalendarURL(ev, loc)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", ev.Title)
	fmt.Fprintf(out, "ICS:      %s\n", links.EventICSURL(origin, ev.ID))
	fmt.Fprintf(out, "Google:   %s\n", quickAdd)
	fmt.Fprintf(out, "Karta:    %s\n", links.MapsSearchURL(ev.Location))
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/borkacal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional .env file with BORKA_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh once, print the month and exit")
	flag.StringVar(&cfg.month, "month", "", "Month to show as YYYY-MM (default: current month)")
	flag.IntVar(&cfg.delta, "delta", 0, "Months to move from -month (negative goes back)")
	flag.StringVar(&cfg.category, "category", "", "Only show this category slug")
	flag.BoolVar(&cfg.links, "links", false, "Also print calendar subscription links (with -once)")
	flag.StringVar(&cfg.eventID, "event", "", "Print ICS / Google / map links for one event (with -once)")
	flag.BoolVar(&cfg.whoami, "whoami", false, "Print the member behind the session token (with -once)")

	flag.Parse()

	return cfg
}
