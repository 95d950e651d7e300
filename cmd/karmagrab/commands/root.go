package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"karmagrab/internal/batch"
	"karmagrab/internal/components/chrono"
	"karmagrab/internal/components/telemetry"
	"karmagrab/internal/cookie"
	"karmagrab/internal/output"
	"karmagrab/internal/scrapers/leprosorium"
	"karmagrab/pkg/serviceutil"

	"github.com/spf13/cobra"
)

type flags struct {
	cookie     string
	format     string
	json       bool
	noVoters   bool
	votePolicy string
	config     string
	dumpHttp   string
	debug      bool
}

var rootFlags flags

func init() {
	f := rootCmd.Flags()
	f.StringVar(&rootFlags.cookie, "cookie", "", "Auth cookie file (default to $KARMAGRAB_COOKIE, ~/.leper/auth_cookie or ./auth_cookie).")
	f.StringVarP(&rootFlags.format, "format", "f", "tsv", "Output format: tsv, json or table.")
	f.BoolVar(&rootFlags.json, "json", false, "Dump to JSON, same as --format json.")
	f.BoolVar(&rootFlags.noVoters, "no-voters", false, "Do not request the vote ledger of every user (json only requests them).")
	f.StringVar(&rootFlags.votePolicy, "vote-policy", "", "How a login found in both pros and cons is folded: overwrite or sum.")
	f.StringVar(&rootFlags.config, "config", "", "Configuration file (default to the closest karmagrab.json5).")
	f.StringVar(&rootFlags.dumpHttp, "dump-http", "", "Write every http exchange into this directory.")
	f.BoolVar(&rootFlags.debug, "debug", false, "Log debug information to stderr.")

	rootCmd.MarkFlagsMutuallyExclusive("json", "format")
}

var rootCmd = &cobra.Command{
	Use:   "karmagrab [flags] <login>...",
	Short: "karmagrab grabs karma statistics of leprosorium users.",
	Args:  cobra.MinimumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(os.Stderr, rootFlags.debug)
	},
	Run: func(cmd *cobra.Command, args []string) {
		err := run(cmd.Context(), rootFlags, args)
		if err != nil {
			serviceutil.Fatal("karmagrab failed", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// dumperOptions turns the output flags into output.Options.
func (f flags) dumperOptions() (output.Options, error) {
	format := f.format
	if f.json {
		format = string(output.FormatJSON)
	}
	parsed, err := output.ParseFormat(format)
	if err != nil {
		return output.Options{}, err
	}
	return output.Options{
		Format: parsed,
		Voters: parsed == output.FormatJSON && !f.noVoters,
	}, nil
}

func run(ctx context.Context, f flags, logins []string) error {
	cfg, err := loadConfig(f.config)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if f.votePolicy != "" {
		cfg.VotePolicy = f.votePolicy
	}
	if f.dumpHttp != "" {
		cfg.DumpHttpDir = f.dumpHttp
	}
	policy, err := leprosorium.ParseVotePolicy(cfg.VotePolicy)
	if err != nil {
		return err
	}
	dumperOpts, err := f.dumperOptions()
	if err != nil {
		return err
	}

	otel, err := telemetry.SetupOtel(ctx, "karmagrab", cfg.Otlp)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := otel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()

	credential, source, err := cookie.NewLoader(f.cookie).Load()
	if err != nil {
		return err
	}
	slog.Debug("loaded cookie", "source", source)

	tel := telemetry.SlogAPI{}
	transportOpts := leprosorium.TransportOptions{
		Origin:            cfg.Origin,
		Cookie:            credential,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.timeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		CloudflareBypass:  cfg.CloudflareBypass,
	}
	if cfg.DumpHttpDir != "" {
		dump, err := telemetry.NewFilesystemOutput(cfg.DumpHttpDir)
		if err != nil {
			return fmt.Errorf("create http dump directory: %w", err)
		}
		transportOpts.Dump = dump
	}
	transport, err := leprosorium.NewTransport(transportOpts, tel)
	if err != nil {
		return err
	}

	grabber := leprosorium.NewGrabber(transport, leprosorium.Options{
		ProfilePath: cfg.ProfilePath,
		VotesPath:   cfg.VotesPath,
		VotePolicy:  policy,
	}, tel)
	defer grabber.Close()

	dumper, err := output.New(os.Stdout, chrono.StandardImpl{}, dumperOpts)
	if err != nil {
		return err
	}

	summary, err := batch.Run(ctx, grabber, dumper, logins, batch.Policy{
		StopOnUnexpectedStatus: *cfg.StopOnUnexpectedStatus,
	}, tel)
	slog.Debug(
		"batch finished",
		"found", len(summary.Found),
		"not_found", len(summary.NotFound),
		"failed", len(summary.Failed),
	)
	return err
}
