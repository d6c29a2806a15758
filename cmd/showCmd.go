package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nind/pkg"
)

func newShowCmd(a *app) *cobra.Command {
	var class string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show Resources",
		Long:  `Show the containers and networks owned by nind.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := pkg.NewCalculator(a.manager, cmd.OutOrStdout())
			switch class {
			case "containers":
				return c.ShowContainers(cmd.Context())
			case "networks":
				return c.ShowNetworks(cmd.Context())
			case "all":
				if err := c.ShowContainers(cmd.Context()); err != nil {
					return err
				}
				return c.ShowNetworks(cmd.Context())
			default:
				return fmt.Errorf("invalid class %q, want containers, networks or all", class)
			}
		},
	}

	cmd.Flags().StringVar(&class, "class", "all", "Class of the element to show: containers, networks or all")
	return cmd
}
