package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-blockfs/pkg/app"
	"github.com/deploymenttheory/go-blockfs/pkg/app/listing"
)

var listPath string

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List a directory",
	Long: `List the subdirectories and files of one directory.

Examples:
  # List the root directory
  blockfs --container disk.bin ls

  # List a nested directory as JSON
  blockfs --container disk.bin -o json ls --path /docs/2024`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := filesystemService().ListDirectory(appCtx, appCtx.ContainerPath, listPath)
		if err != nil {
			return wrapError(app.OpList, err)
		}
		return listing.FormatListing(appCtx.Out, entries, appCtx.OutputFormat)
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "List every directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := filesystemService().ListTree(appCtx, appCtx.ContainerPath)
		if err != nil {
			return wrapError(app.OpTree, err)
		}
		return listing.FormatTree(appCtx.Out, tree, appCtx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(listCmd, treeCmd)

	listCmd.Flags().StringVarP(&listPath, "path", "p", "/", "directory to list")
}
