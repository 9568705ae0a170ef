package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/karatekonnect/pkg/cache"
	"github.com/cuemby/karatekonnect/pkg/config"
	"github.com/cuemby/karatekonnect/pkg/log"
	"github.com/cuemby/karatekonnect/pkg/metrics"
	"github.com/cuemby/karatekonnect/pkg/remote"
	"github.com/cuemby/karatekonnect/pkg/roster"
	"github.com/cuemby/karatekonnect/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", describe(err))
		os.Exit(1)
	}
}

// env is what every data command needs, built once per invocation
type env struct {
	cfg     config.Config
	kv      storage.Store
	client  *remote.Client
	roster  *roster.Storage
	metrics *http.Server
}

var app *env

var rootCmd = &cobra.Command{
	Use:   "karatekonnect",
	Short: "KarateKonnect - athlete roster sync client",
	Long: `KarateKonnect keeps a local cached copy of the club's athlete roster,
which lives as one JSON document in a remote gist.

Reads are served from the cache for a few minutes, fall back to the last
known copy when the remote is unreachable, and writes replace the whole
document using a personal access token.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsStore(cmd) {
			return nil
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		app = e
		return nil
	},
}

// needsStore reports whether cmd works on roster data. Version, help and
// shell completion run without opening (and locking) the local store.
func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

// execute runs the command line and releases the local store whether or not
// the command succeeded
func execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if app != nil {
		err = errors.Join(err, app.close())
		app = nil
	}
	return err
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"KarateKonnect version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to YAML config file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("json-logs", false, "Emit logs as JSON")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")
	flags.String("data-dir", "", "Directory for the local store")
	flags.String("backend", "", "Local store backend (bolt, badger, memory)")
	flags.String("document-id", "", "Remote document id")

	// Add subcommands
	rootCmd.AddCommand(athletesCmd)
	rootCmd.AddCommand(athleteCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "KarateKonnect version %s\nCommit: %s\nBuilt: %s\n",
			Version, Commit, BuildTime)
	},
}

// loadConfig reads the config file and environment, then applies flags
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("json-logs") {
		cfg.JSONLogs, _ = flags.GetBool("json-logs")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("backend") {
		cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("document-id") {
		cfg.DocumentID, _ = flags.GetString("document-id")
	}
	return cfg, cfg.Validate()
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.LogLevel),
		JSONOutput: cfg.JSONLogs,
	})
	metrics.SetVersion(Version)

	kv, err := storage.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		metrics.RegisterComponent(metrics.ComponentStore, false, err.Error())
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	metrics.RegisterComponent(metrics.ComponentStore, true, "")
	metrics.RegisterComponent(metrics.ComponentRemote, true, "")
	metrics.RegisterComponent(metrics.ComponentCache, true, "")

	client := remote.NewClient(remote.Config{
		BaseURL:      cfg.APIBase,
		ResourceKind: cfg.ResourceKind,
		DocumentID:   cfg.DocumentID,
		Filename:     cfg.Filename,
		Timeout:      cfg.Timeout,
		Retries:      cfg.FetchRetries,
		UserAgent:    "karatekonnect/" + Version,
	})

	e := &env{
		cfg:    cfg,
		kv:     kv,
		client: client,
		roster: roster.New(kv, client, roster.WithCacheOptions(cache.WithTTL(cfg.CacheTTL))),
	}

	if cfg.MetricsAddr != "" {
		e.metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.NewServeMux()}
		go func() {
			if err := e.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics server error")
			}
		}()
		log.Logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
	}

	return e, nil
}

func (e *env) close() error {
	if e.metrics != nil {
		_ = e.metrics.Close()
	}
	if err := e.kv.Close(); err != nil {
		return fmt.Errorf("failed to close local store: %w", err)
	}
	return nil
}

// requireDocument fails commands that talk to the remote store when no
// document is configured
func (e *env) requireDocument() error {
	if e.cfg.DocumentID == "" {
		return errors.New("no document configured, set document_id in the config file or KARATEKONNECT_DOCUMENT_ID")
	}
	return nil
}

// describe turns orchestrator errors into the messages shown to the user
func describe(err error) error {
	switch {
	case errors.Is(err, roster.ErrAuthRequired):
		return err
	case errors.Is(err, remote.ErrUnauthorized):
		return fmt.Errorf("the remote store rejected the token, check it with 'karatekonnect token set': %w", err)
	case errors.Is(err, roster.ErrUpdateFailed):
		return fmt.Errorf("changes were not saved: %w", err)
	case errors.Is(err, roster.ErrDataUnavailable):
		return fmt.Errorf("roster unavailable and nothing cached: %w", err)
	default:
		return err
	}
}
