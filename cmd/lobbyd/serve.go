package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/lobbyd/internal/config"
	"github.com/vango-dev/lobbyd/internal/logging"
	"github.com/vango-dev/lobbyd/pkg/server"
)

type serveFlags struct {
	configPath  string
	addr        string
	maxSessions int
	players     int
	logLevel    string
}

func serveCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lobby server",
		Long: `Start the lobby server.

Configuration is read from the --config TOML file, then LOBBYD_*
environment variables, then the flags below.

Examples:
  lobbyd serve
  lobbyd serve --addr=127.0.0.1:9000 --max-sessions=10
  lobbyd serve --config=lobbyd.toml --players=4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			slog.SetDefault(logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))
			if cfg.Path() != "" {
				slog.Info("configuration loaded", "path", cfg.Path())
			}
			return server.New(cfg).Run(context.Background())
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to a TOML configuration file")
	cmd.Flags().StringVarP(&flags.addr, "addr", "a", "", "Listen address host:port (default "+config.DefaultAddress+")")
	cmd.Flags().IntVarP(&flags.maxSessions, "max-sessions", "n", 0, "Sessions allowed to run at once")
	cmd.Flags().IntVarP(&flags.players, "players", "p", 0, "Players per match")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	return cmd
}

// loadConfig resolves the config with the flags the user set explicitly
// taking precedence over the file and the environment.
func loadConfig(cmd *cobra.Command, flags serveFlags) (*config.Config, error) {
	changed := cmd.Flags().Changed
	return config.Load(flags.configPath, func(c *config.Config) {
		if changed("addr") {
			c.Address = flags.addr
		}
		if changed("max-sessions") {
			c.MaxSessions = flags.maxSessions
		}
		if changed("players") {
			c.PlayersPerMatch = flags.players
		}
		if changed("log-level") {
			c.LogLevel = flags.logLevel
		}
	})
}
