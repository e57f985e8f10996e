package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-blockfs/pkg/app"
)

var (
	mkdirPath string
	rmdirPath string
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir NAME",
	Short: "Create a directory",
	Long: `Create a directory inside the directory given by --path.

Examples:
  blockfs --container disk.bin mkdir docs
  blockfs --container disk.bin mkdir 2024 --path /docs`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := filesystemService().CreateDirectory(appCtx, appCtx.ContainerPath, mkdirPath, args[0]); err != nil {
			return wrapError(app.OpMkdir, err)
		}
		appCtx.Printf("Created directory %s\n", joinPath(mkdirPath, args[0]))
		return nil
	},
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir NAME",
	Short: "Remove a directory and everything beneath it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := filesystemService().RemoveDirectory(appCtx, appCtx.ContainerPath, rmdirPath, args[0]); err != nil {
			return wrapError(app.OpRmdir, err)
		}
		appCtx.Printf("Removed directory %s\n", joinPath(rmdirPath, args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mkdirCmd, rmdirCmd)

	mkdirCmd.Flags().StringVarP(&mkdirPath, "path", "p", "/", "parent directory")
	rmdirCmd.Flags().StringVarP(&rmdirPath, "path", "p", "/", "parent directory")
}
