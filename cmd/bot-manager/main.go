package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vexa-ai/bot-manager/pkg/admission"
	"github.com/vexa-ai/bot-manager/pkg/bot"
	"github.com/vexa-ai/bot-manager/pkg/config"
	"github.com/vexa-ai/bot-manager/pkg/events"
	"github.com/vexa-ai/bot-manager/pkg/log"
	"github.com/vexa-ai/bot-manager/pkg/metrics"
	"github.com/vexa-ai/bot-manager/pkg/orchestrator"
	"github.com/vexa-ai/bot-manager/pkg/storage"
	"github.com/vexa-ai/bot-manager/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bot-manager",
	Short: "Bot manager - launch and track per-meeting bot workloads",
	Long: `Bot manager launches, stops, and reports status on per-meeting bot
workloads running as containerized services, enforcing a per-user
concurrency quota.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"bot-manager version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Optional config file")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(metricsCmd)
}

// app bundles the wired dependencies of one command invocation.
type app struct {
	cfg     *config.Config
	store   storage.Store
	orch    orchestrator.Orchestrator
	pub     events.Publisher
	manager *bot.Manager
}

func (r *app) close() {
	r.pub.Close()
	r.orch.Close()
	r.store.Close()
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Init(log.Config{Level: log.ParseLevel(cfg.LogLevel)})

	var store storage.Store
	if cfg.DatabaseURL != "" {
		store, err = storage.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.DefaultBotLimit)
	} else {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err = storage.NewBoltStore(cfg.DataDir, cfg.DefaultBotLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	orch, err := orchestrator.NewContainerd(ctx, cfg.ContainerdAddress)
	if err != nil {
		store.Close()
		return nil, err
	}

	var pub events.Publisher
	if redisPub, err := events.NewRedisPublisher(cfg.RedisURL); err != nil {
		log.Logger.Warn().Err(err).Msg("event publishing disabled")
		pub = events.NopPublisher{}
	} else {
		pub = redisPub
	}

	adm := admission.NewController(store, orch)
	manager := bot.NewManager(orch, store, adm, cfg, pub)

	return &app{cfg: cfg, store: store, orch: orch, pub: pub, manager: manager}, nil
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a bot workload for a meeting",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt("user-id")
		meetingID, _ := cmd.Flags().GetInt("meeting-id")
		meetingURL, _ := cmd.Flags().GetString("meeting-url")
		platform, _ := cmd.Flags().GetString("platform")
		botName, _ := cmd.Flags().GetString("bot-name")
		token, _ := cmd.Flags().GetString("token")
		nativeMeetingID, _ := cmd.Flags().GetString("native-meeting-id")
		language, _ := cmd.Flags().GetString("language")
		task, _ := cmd.Flags().GetString("task")

		ctx := cmd.Context()
		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		result, err := rt.manager.StartBot(ctx, bot.StartRequest{
			UserID:          userID,
			MeetingID:       meetingID,
			MeetingURL:      meetingURL,
			Platform:        types.Platform(platform),
			BotName:         botName,
			UserToken:       token,
			NativeMeetingID: nativeMeetingID,
			Language:        language,
			Task:            task,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✓ Bot started\n")
		fmt.Printf("  Workload ID:   %s\n", result.WorkloadID)
		fmt.Printf("  Connection ID: %s\n", result.ConnectionID)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop NAME_OR_ID",
	Short: "Stop and remove a bot workload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		ok, err := rt.manager.StopBot(ctx, args[0])
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("✓ Bot workload %s stopped\n", args[0])
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List running bot workloads for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt("user-id")

		ctx := cmd.Context()
		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		statuses, err := rt.manager.ListRunningBots(ctx, userID)
		if err != nil {
			return err
		}

		if len(statuses) == 0 {
			fmt.Println("No running bots.")
			return nil
		}

		fmt.Printf("%-40s %-38s %-12s %-20s %s\n", "WORKLOAD", "CONNECTION", "MEETING", "PLATFORM", "STATUS")
		for _, s := range statuses {
			fmt.Printf("%-40s %-38s %-12s %-20s %s\n",
				s.WorkloadName, s.ConnectionID, s.MeetingID, s.Platform, s.Status)
		}
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Serve the Prometheus metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log.Init(log.Config{Level: log.ParseLevel(cfg.LogLevel)})

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

		errCh := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		fmt.Printf("Metrics listening on %s. Press Ctrl+C to stop.\n", cfg.MetricsAddr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			return fmt.Errorf("metrics server error: %w", err)
		}

		return server.Shutdown(context.Background())
	},
}

func init() {
	startCmd.Flags().Int("user-id", 0, "Owning user id")
	startCmd.Flags().Int("meeting-id", 0, "Internal meeting id")
	startCmd.Flags().String("meeting-url", "", "Meeting URL for the bot to join")
	startCmd.Flags().String("platform", string(types.PlatformGoogleMeet), "Meeting platform (google_meet, zoom, teams)")
	startCmd.Flags().String("bot-name", "", "Display name inside the meeting (defaults to VexaBot-<id>)")
	startCmd.Flags().String("token", "", "API token of the requesting user")
	startCmd.Flags().String("native-meeting-id", "", "Platform-specific meeting id")
	startCmd.Flags().String("language", "", "Optional transcription language code")
	startCmd.Flags().String("task", "", "Optional transcription task (transcribe or translate)")
	_ = startCmd.MarkFlagRequired("user-id")
	_ = startCmd.MarkFlagRequired("meeting-id")
	_ = startCmd.MarkFlagRequired("token")
	_ = startCmd.MarkFlagRequired("native-meeting-id")

	statusCmd.Flags().Int("user-id", 0, "User id to list bots for")
	_ = statusCmd.MarkFlagRequired("user-id")
}
