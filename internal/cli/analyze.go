package cli

import (
	"context"
	"fmt"

	"skillgap/internal/common"
	"skillgap/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [cv-file] [job-description-file]",
	Short: "Run the full skills-gap analysis",
	Long: `Run the full skills-gap analysis of a CV against a job description.

The report includes:
- Deterministic skill match score and market-ranked missing skills
- AI-estimated proficiency for your skills and the job's requirements
- Skill gaps ranked by must-have, gap size and market demand
- Priority actions, learning paths and concrete resume edits

CV files may be PDF, DOCX, Markdown or plain text.`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

var (
	analyzeConfig   common.CommandConfig
	analyzeJobTitle string
)

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
	analyzeCmd.Flags().StringVarP(&analyzeJobTitle, "title", "t", "", "Job title used in the coaching plan")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	engine, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer closeEngine(cmd, engine)

	createInput := func(contents []string) (types.AnalysisRequest, error) {
		if len(contents) != 2 {
			return types.AnalysisRequest{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return types.AnalysisRequest{
			CVText:         contents[0],
			JobDescription: contents[1],
			JobTitle:       analyzeJobTitle,
		}, nil
	}

	logDetails := func(input types.AnalysisRequest, cfg common.CommandConfig) {
		logger.Info("Starting skills-gap analysis",
			"cv_chars", len(input.CVText),
			"job_chars", len(input.JobDescription),
			"output_format", cfg.OutputFormat)
	}

	err = common.RunCommand(cmd.Context(), logger, analyzeConfig, args, createInput,
		func(ctx context.Context, input types.AnalysisRequest) (*types.FullAnalysisResponse, error) {
			return engine.Analyze(ctx, input)
		},
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to analyze skills gap: %w", err)
	}
	logger.Info("Skills-gap analysis completed successfully")
	return nil
}
