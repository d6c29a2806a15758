package cmd

import (
	"github.com/spf13/cobra"

	"nind/pkg"
)

func newApplyCmd(a *app) *cobra.Command {
	var filepath string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply Topology",
		Long:  `Apply Topology with Routers list and Nodes list.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pkg.NewCalculator(a.manager, cmd.OutOrStdout()).ApplyTopoConfig(cmd.Context(), filepath)
		},
	}

	cmd.Flags().StringVarP(&filepath, "from", "f", "", "Path to the topology configuration file")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
