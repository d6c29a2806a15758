package cmd

import (
	"github.com/spf13/cobra"
)

func newBuildImageCmd(a *app) *cobra.Command {
	var (
		path    string
		builder bool
	)
	cmd := &cobra.Command{
		Use:   "build_image",
		Short: "Build the router and node images",
		Long: `Build <path>/bns-router as the router image and <path> as the node image.
With --builder, build the "builder" stage of <path> as the builder image
used by debug nodes instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.manager.BuildImages(cmd.Context(), path, builder)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Build context directory (default from config)")
	cmd.Flags().BoolVar(&builder, "builder", false, "Build the node builder image")
	return cmd
}
