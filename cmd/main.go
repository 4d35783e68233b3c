// Command gradegoal runs the grade analytics service and exposes the
// analytics engine as offline calculators.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gradegoal",
		Short:        "Grade progression and goal analytics",
		Long:         "gradegoal ingests grade snapshots, charts weekly progression and estimates goal achievement.",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newCalcCmd())
	return root
}
