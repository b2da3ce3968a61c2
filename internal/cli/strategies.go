package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/backsim/strategies"
)

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List registered strategies",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range strategies.List() {
				fmt.Println(name)
			}
		},
	}
}
