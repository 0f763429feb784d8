package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"WeatherUSSD/internal/app"
	"WeatherUSSD/internal/config"
)

func main() {
	var configPath string
	var debug bool
	var recent int

	flag.StringVar(&configPath, "config", os.Getenv("USSD_CONFIG"), "Path to YAML config (default: $USSD_CONFIG, else defaults + env)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.IntVar(&recent, "recent", 0, "Print the last N ledger notifications and exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if debug {
		cfg.Debug = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service: %v\n", err)
		os.Exit(1)
	}

	if recent > 0 {
		err = printRecent(ctx, svc, recent)
	} else {
		err = svc.Run(ctx)
	}
	if closeErr := svc.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printRecent(ctx context.Context, svc *app.App, limit int) error {
	notes, err := svc.Recent(ctx, limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSESSION\tLANG\tLOCATION\tSYNTH\tSMS\tERROR")
	for _, n := range notes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			n.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			n.SessionID, n.Language, n.Location,
			n.SynthesisStatus, n.SMSStatus, n.Error,
		)
	}
	return w.Flush()
}
