package cmd

import (
	"github.com/spf13/cobra"
)

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove every container and network created by nind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.manager.Clean(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info().
				Int("containers", len(res.Containers)).
				Int("networks", len(res.Networks)).
				Msg("Topology cleaned")
			return nil
		},
	}
}
