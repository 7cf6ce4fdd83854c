package cli

import (
	"context"
	"fmt"

	"skillgap/internal/common"
	"skillgap/internal/types"

	"github.com/spf13/cobra"
)

var quantCmd = &cobra.Command{
	Use:   "quant [cv-file] [job-description-file]",
	Short: "Score the skill match without calling the AI model",
	Long: `Extract and normalize the skills of a CV and a job description, score the match
and list the missing skills ordered by market demand. No AI model is called.`,
	Args: cobra.ExactArgs(2),
	RunE: runQuant,
}

var quantConfig common.CommandConfig

func init() {
	addOutputFlags(quantCmd, &quantConfig)
}

func runQuant(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	engine, err := newLocalEngine(cmd)
	if err != nil {
		return err
	}
	defer closeEngine(cmd, engine)

	createInput := func(contents []string) (types.AnalysisRequest, error) {
		if len(contents) != 2 {
			return types.AnalysisRequest{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return types.AnalysisRequest{CVText: contents[0], JobDescription: contents[1]}, nil
	}

	err = common.RunCommand(cmd.Context(), logger, quantConfig, args, createInput,
		func(ctx context.Context, input types.AnalysisRequest) (types.QuantitativeReport, error) {
			return engine.Quantitative(ctx, input)
		},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to compare skills: %w", err)
	}
	return nil
}
