package cli

import (
	"skillgap/internal/config"
	"skillgap/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the skills-gap HTTP API",
	Long: `Start an HTTP server exposing the analysis over REST.

Available endpoints:
- POST /analyze: Full analysis from JSON {cv_text, job_description, job_title}
- POST /analyze/upload: Full analysis from a multipart CV file (cv_file) plus job_description
- POST /analyze/quantitative: Deterministic skill match only
- POST /extract: Normalized skills of {text}
- GET /demand?skill=<name>: Market demand for one skill
- GET /health: Model availability, breaker state and loaded data
- GET /stats: Server statistics and rate limiting info`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().Bool("watch-prompts", false, "Reload prompt files when they change")
}

// applyServeFlags overrides the loaded configuration with flags set on the command line
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetString("port")
	}
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("watch-prompts") {
		cfg.Server.WatchPrompts, _ = flags.GetBool("watch-prompts")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeFlags(cmd, cfg)
	return server.NewServer(cfg, server.FromConfig(cfg, Version), logger).Start(cmd.Context())
}
