package cli

import (
	"fmt"

	"skillgap/internal/common"
	"skillgap/internal/types"

	"github.com/spf13/cobra"
)

var demandCmd = &cobra.Command{
	Use:   "demand [skill]...",
	Short: "Show the market demand of one or more skills",
	Long: `Look up how many job postings mention each skill, which roles ask for it most
and its priority bucket (Critical, High, Medium or Low).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDemand,
}

var demandConfig common.CommandConfig

func init() {
	addOutputFlags(demandCmd, &demandConfig)
}

func runDemand(cmd *cobra.Command, args []string) error {
	engine, err := newLocalEngine(cmd)
	if err != nil {
		return err
	}
	defer closeEngine(cmd, engine)

	records := make([]types.DemandRecord, 0, len(args))
	for _, skill := range args {
		record, err := engine.Demand(cmd.Context(), skill)
		if err != nil {
			return fmt.Errorf("failed to look up %q: %w", skill, err)
		}
		records = append(records, record)
	}

	return common.NewOutputHandler(getLoggerFromContext(cmd.Context())).HandleOutput(records, demandConfig)
}
