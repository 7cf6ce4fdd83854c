package cli

import (
	"context"

	"skillgap/internal/analysis"
	"skillgap/internal/common"
	"skillgap/internal/config"
	"skillgap/internal/errors"
	"skillgap/internal/observability"

	"github.com/spf13/cobra"
)

type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "skillgap",
	Short: "Compare a CV against a job description and the job market",
	Long: `skillgap extracts and normalizes the skills in a CV and a job description,
scores how well they match, ranks the missing skills by market demand and asks
an AI model for proficiency levels, a prioritized gap list and a coaching plan.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context")
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context")
}

// newEngine builds the analysis engine for a one-shot command. Telemetry stays off so
// nothing but the report reaches stdout.
func newEngine(cmd *cobra.Command) (*analysis.Engine, error) {
	return analysis.Build(getConfigFromContext(cmd.Context()), observability.Disabled(), getLoggerFromContext(cmd.Context()))
}

// newLocalEngine is newEngine for commands that never call the AI model
func newLocalEngine(cmd *cobra.Command) (*analysis.Engine, error) {
	return analysis.BuildWithoutAI(getConfigFromContext(cmd.Context()), observability.Disabled(), getLoggerFromContext(cmd.Context()))
}

func closeEngine(cmd *cobra.Command, engine *analysis.Engine) {
	if err := engine.Close(); err != nil {
		getLoggerFromContext(cmd.Context()).LogError(err, "Failed to close AI services")
	}
}

// addOutputFlags registers -o/--output and --format and validates the format before the command runs
func addOutputFlags(cmd *cobra.Command, cmdConfig *common.CommandConfig) {
	cmd.Flags().StringVarP(&cmdConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cmdConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if cmdConfig.OutputFormat == "" {
			cmdConfig.OutputFormat = cfg.App.DefaultFormat
		}
		cmdConfig.MaxFileSize = cfg.App.MaxFileSize
		cmdConfig.Stdout = cmd.OutOrStdout()
		return common.ValidateOutputFormat(cmdConfig.OutputFormat, cfg.App.SupportedFormats)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(quantCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(demandCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
