package cli

import (
	"fmt"

	"skillgap/internal/common"
	"skillgap/internal/types"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "List the normalized skills found in a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var extractConfig common.CommandConfig

func init() {
	addOutputFlags(extractCmd, &extractConfig)
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	engine, err := newLocalEngine(cmd)
	if err != nil {
		return err
	}
	defer closeEngine(cmd, engine)

	err = common.RunCommand(cmd.Context(), logger, extractConfig, args,
		func(contents []string) (types.ExtractRequest, error) {
			return types.ExtractRequest{Text: contents[0]}, nil
		},
		engine.Extract,
		func(input types.ExtractRequest, _ common.CommandConfig) {
			logger.Debug("Extracting skills", "chars", len(input.Text))
		},
	)
	if err != nil {
		return fmt.Errorf("failed to extract skills: %w", err)
	}
	return nil
}
