package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-blockfs/pkg/app/listing"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging defaults, the config file,
BLOCKFS_* environment variables and flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		effective := *config
		effective.ContainerPath = appCtx.ContainerPath
		return listing.FormatConfig(appCtx.Out, &effective, appCtx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
