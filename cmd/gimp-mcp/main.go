package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/gimp-mcp/internal/bridge"
	"github.com/ironsheep/gimp-mcp/internal/config"
	"github.com/ironsheep/gimp-mcp/internal/gimp"
	"github.com/ironsheep/gimp-mcp/internal/protocol"
	"github.com/ironsheep/gimp-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFlag   string
	hostFlag     string
	portFlag     int
	logLevelFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gimp-mcp",
		Short: "MCP server that drives a running GIMP through its MCP plugin",
		Long: "gimp-mcp communicates via MCP over stdin/stdout and forwards tool calls\n" +
			"to the GIMP MCP Server plugin. Configure it in your MCP client.",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "GIMP plugin host (overrides config)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "GIMP plugin port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		serveCmd(),
		callCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// serveCmd
// ---------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP on stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	b := bridge.New(bridge.OptionsFromConfig(cfg.GIMP, logger))
	defer b.Close()

	srv, err := server.New(gimp.NewClient(b, logger), server.Options{Version: Version, Logger: logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("gimp-mcp starting", "version", Version, "gimp", cfg.GIMP.Addr())
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// callCmd
// ---------------------------------------------------------------------------

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <api_path> [args-json] [kwargs-json]",
		Short: "Call one GIMP API method and print the result",
		Example: `  gimp-mcp call Gimp.get_images
  gimp-mcp call Gimp.Image.get_by_id '[1]'
  gimp-mcp call Gimp.context_set_foreground '["#ff8800"]' '{}'`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				callArgs []any
				kwargs   map[string]any
			)
			if len(args) > 1 {
				if err := protocol.UnmarshalArgs([]byte(args[1]), &callArgs); err != nil {
					return fmt.Errorf("args must be a JSON list: %w", err)
				}
			}
			if len(args) > 2 {
				if err := protocol.UnmarshalArgs([]byte(args[2]), &kwargs); err != nil {
					return fmt.Errorf("kwargs must be a JSON object: %w", err)
				}
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			b := bridge.New(bridge.OptionsFromConfig(cfg.GIMP, logger))
			defer b.Close()

			out := gimp.NewClient(b, logger).CallAPI(cmd.Context(), args[0], callArgs, kwargs)
			fmt.Fprintln(cmd.OutOrStdout(), out.Text())
			if !out.OK() {
				return fmt.Errorf("call %s failed", args[0])
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// versionCmd
// ---------------------------------------------------------------------------

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "gimp-mcp %s\n", Version)
			fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
		},
	}
}

// setup loads the configuration, applies command-line overrides and builds
// the stderr logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, err
	}
	if hostFlag != "" {
		cfg.GIMP.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.GIMP.Port = portFlag
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, config.NewLogger(cfg.Log), nil
}
