package cmd

import (
	"github.com/spf13/cobra"

	"nind/pkg"
)

func newCreateNatCmd(a *app) *cobra.Command {
	var opts pkg.RouterOptions
	cmd := &cobra.Command{
		Use:   "create_nat",
		Short: "Create a NAT router between a WAN and a LAN network",
		Long: `Create a router container attached to the WAN and LAN networks and
install a source NAT rule for the LAN subnet on it. The LAN is created when
it is not given or does not exist yet.

Prints "-l <lan> -r <router>", ready to be passed to create_node.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.manager.CreateRouter(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Image, "router-image", "", "Router image (default from config)")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "Router container name (default generated)")
	cmd.Flags().StringVarP(&opts.Lan, "lan", "l", "", "LAN network name (default generated)")
	cmd.Flags().StringVarP(&opts.Wan, "wan", "w", "", "WAN network name (default from config)")
	return cmd
}
