package cmd

import (
	"github.com/spf13/cobra"

	"nind/pkg"
)

func newCreateNodeCmd(a *app) *cobra.Command {
	var opts pkg.NodeOptions
	cmd := &cobra.Command{
		Use:   "create_node",
		Short: "Create a node behind a NAT router",
		Long: `Create a node container on the router's LAN and route the router's WAN
subnet through the router.

Prints "<lan> <node>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			res, err := a.manager.CreateNode(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Lan, "lan", "l", "", "LAN network the node joins")
	cmd.Flags().StringVarP(&opts.Router, "router", "r", "", "Router container on that LAN")
	cmd.Flags().StringVar(&opts.Image, "node-image", "", "Node image (default from config)")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "Node container name (default generated)")
	cmd.Flags().StringVarP(&opts.Stun, "stun", "s", "", "STUN server, host[:port] or stun://host:port")
	cmd.Flags().StringVarP(&opts.Key, "key", "k", "", "Node identity key (default random)")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Run the node from mounted sources in the builder image")
	_ = cmd.MarkFlagRequired("lan")
	_ = cmd.MarkFlagRequired("router")
	_ = cmd.MarkFlagRequired("stun")
	return cmd
}
