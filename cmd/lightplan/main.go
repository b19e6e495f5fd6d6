package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dokzlo13/lightplan/internal/app"
	"github.com/dokzlo13/lightplan/internal/config"
	"github.com/dokzlo13/lightplan/internal/geo"
	"github.com/dokzlo13/lightplan/internal/history"
	"github.com/dokzlo13/lightplan/internal/ingest"
	"github.com/dokzlo13/lightplan/internal/scenario"
	"github.com/dokzlo13/lightplan/internal/status"
)

const usage = `Usage: lightplan <command> [flags]

Commands:
  serve           run the daemon (HTTP API, optional MQTT ingest)
  sun             print sunrise and sunset for a location and date
  status FILE     derive scenario statuses from a scenario list JSON file
  history FILE    normalize history events from a JSON file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "sun":
		err = runSun(args, os.Stdout)
	case "status":
		err = runStatus(args, os.Stdout)
	case "history":
		err = runHistory(args, os.Stdout)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "lightplan %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "config.yaml", "Path to configuration file")
	resetCache := fs.Bool("reset-cache", false, "Drop the persisted scenario cache on startup")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	setupLogging(cfg.Log.Level, cfg.Log.Format == "json", cfg.Log.Colors)

	log.Info().Str("config", *configPath).Msg("Starting lightplan")

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	if *resetCache {
		log.Info().Msg("Clearing persisted scenario cache (--reset-cache)")
		if err := application.ResetCache(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear scenario cache")
		}
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	application.Wait()

	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	return application.Err()
}

func runSun(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("sun", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "config.yaml", "Configuration file with the default location")
	tz := fs.String("tz", "", "IANA time zone (default from config)")
	lat := fs.Float64("lat", 0, "Latitude (default from config)")
	lon := fs.Float64("lon", 0, "Longitude (default from config)")
	date := fs.String("date", "", "Local date YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := optionalConfig(fs, *configPath)
	if err != nil {
		return err
	}
	quietLogging()

	calc := geo.NewCalculator(geo.Location{
		Name:      cfg.Geo.Name,
		Latitude:  cfg.Geo.Lat,
		Longitude: cfg.Geo.Lon,
		Timezone:  cfg.Geo.Timezone,
	})

	zone := *tz
	if zone == "" {
		zone = cfg.Geo.Timezone
	}
	loc := geo.LoadLocation(zone)

	at := time.Now()
	if *date != "" {
		day, err := time.ParseInLocation("2006-01-02", *date, loc)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		at = day.Add(12 * time.Hour)
	}

	env := calc.Environment(at, zone, *lat, *lon)
	fmt.Fprintf(out, "date     %s (%s)\n", at.In(loc).Format("2006-01-02"), env.TZ)
	fmt.Fprintf(out, "location %.4f, %.4f\n", env.Lat, env.Lon)
	fmt.Fprintf(out, "sunrise  %s  (%s)\n", env.SunriseUTC.In(loc).Format("15:04"), env.SunriseUTC.Format(time.RFC3339))
	fmt.Fprintf(out, "sunset   %s  (%s)\n", env.SunsetUTC.In(loc).Format("15:04"), env.SunsetUTC.Format(time.RFC3339))
	return nil
}

func runStatus(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
	nowFlag := fs.String("now", "", "Evaluate at this instant (RFC3339 or epoch ms)")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one scenario list file")
	}
	quietLogging()

	now, err := parseNow(*nowFlag)
	if err != nil {
		return err
	}
	raw, err := readJSON(fs.Arg(0))
	if err != nil {
		return err
	}

	entries := scenario.NewDirectory()
	entries.Seed(scenario.ParseList(raw))

	type row struct {
		ID     string         `json:"id"`
		Name   string         `json:"name"`
		Status status.Derived `json:"status"`
	}
	rows := make([]row, 0, entries.Len())
	for _, e := range entries.All() {
		rows = append(rows, row{ID: e.Scenario.ID, Name: e.Scenario.Name, Status: e.Derive(now)})
	}

	if *asJSON {
		return writeJSON(out, rows)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tSTATUS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Status.Kind, r.Status.Label)
	}
	return tw.Flush()
}

func runHistory(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	scenariosPath := fs.String("scenarios", "", "Scenario list file used to resolve scenario names and types")
	fallback := fs.String("fallback-color", history.DefaultFallbackColor, "Color shown when an event carries none")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one events file")
	}
	quietLogging()

	raw, err := readJSON(fs.Arg(0))
	if err != nil {
		return err
	}
	// Accept the same envelopes as the ingest endpoints
	event, err := ingest.HistoryEvent(raw, "cli")
	if err != nil {
		return err
	}

	directory := scenario.NewDirectory()
	if *scenariosPath != "" {
		list, err := readJSON(*scenariosPath)
		if err != nil {
			return err
		}
		directory.Seed(scenario.ParseList(list))
	}

	events := history.Normalize(event.Payload, directory, history.Options{
		FallbackColor: *fallback,
		Now:           time.Now(),
	})
	return writeJSON(out, events)
}

// optionalConfig loads the config only when the file was named explicitly or
// exists; otherwise defaults apply.
func optionalConfig(fs *pflag.FlagSet, path string) (*config.Config, error) {
	if !fs.Changed("config") {
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func parseNow(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	if t, ok := status.ParseTimestamp(value); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --now %q", value)
}

func readJSON(path string) (any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	raw, err := ingest.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func quietLogging() {
	setupLogging("warn", false, false)
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
