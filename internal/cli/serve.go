package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rkalmar/mandate/internal/audit"
	"github.com/rkalmar/mandate/internal/registry"
	"github.com/rkalmar/mandate/internal/server"
)

var (
	serveAddr   string
	servePolicy string
	serveDB     string
	serveRate   float64
	serveBurst  int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8787", "Listen address")
	serveCmd.Flags().StringVar(&servePolicy, "policy", "", "Path to policy YAML (required)")
	serveCmd.Flags().StringVar(&serveDB, "db", audit.DefaultPath(), "Path to the audit database")
	serveCmd.Flags().Float64Var(&serveRate, "rate", 10, "Per-client requests per second")
	serveCmd.Flags().IntVar(&serveBurst, "burst", 20, "Per-client request burst")
	serveCmd.MarkFlagRequired("policy")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP guard server",
	Long: "Serves the enforcement pipeline over HTTP: POST /v1/hooks/input,\n" +
		"/v1/hooks/step, and /v1/hooks/result, plus /healthz and /metrics.\n" +
		"The policy file is hot-reloaded on change.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	srv, err := server.New(server.Config{
		Addr:          serveAddr,
		PolicyPath:    servePolicy,
		AuditPath:     serveDB,
		RatePerSecond: serveRate,
		RateBurst:     serveBurst,
	}, defaultRegistry(), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reloader, err := server.NewReloader(srv, log)
	if err != nil {
		return err
	}
	go func() {
		_ = reloader.Run(ctx)
	}()

	return srv.Run(ctx)
}

// defaultRegistry carries the built-in extension tables shipped with the
// binary. External extension modules register theirs at boot in embedded
// deployments; the CLI ships a baseline legal_uk module so the default
// policy works out of the box.
func defaultRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterEscalationTopics("legal_uk", map[string][]string{
		"illegal_eviction": {"changed the locks", "locked me out", "evicted without notice", "bailiffs without"},
		"harassment":       {"harassing me", "threatening me", "landlord threats"},
		"homelessness":     {"nowhere to live", "sleeping rough", "homeless"},
	})
	reg.RegisterScopeKeywords("legal_uk", map[string][]string{
		"england":  {"england", "english law"},
		"wales":    {"wales", "welsh"},
		"scotland": {"scotland", "scottish", "holyrood"},
		"ireland":  {"northern ireland", "belfast"},
	})
	reg.RegisterActionPatterns("legal_uk", map[string]string{
		"legal_representation": `(?i)\b(i will represent you|acting as your (solicitor|lawyer|barrister)|on your behalf in court)\b`,
	})
	return reg
}
