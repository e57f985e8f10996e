package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-blockfs/pkg/app"
)

var (
	copyInPath  string
	copyOutPath string
	removePath  string
)

var copyInCmd = &cobra.Command{
	Use:   "cpin SRC [NAME]",
	Short: "Copy a host file into the container",
	Long: `Copy a host file into the directory given by --path. NAME defaults to
the base name of SRC.

Examples:
  blockfs --container disk.bin cpin ./report.pdf
  blockfs --container disk.bin cpin ./report.pdf q1.pdf --path /docs`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		if err := filesystemService().CopyFileIn(appCtx, appCtx.ContainerPath, copyInPath, args[0], name); err != nil {
			return wrapError(app.OpCopyIn, err)
		}
		appCtx.Printf("Copied %s into %s\n", args[0], copyInPath)
		return nil
	},
}

var copyOutCmd = &cobra.Command{
	Use:   "cpout NAME DST",
	Short: "Copy a file out of the container",
	Long: `Copy a file from the directory given by --path to a host path.

Every block is checked against its stored checksum. The host file only
appears once the whole file has been read and verified.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := filesystemService().CopyFileOut(appCtx, appCtx.ContainerPath, copyOutPath, args[0], args[1]); err != nil {
			return wrapError(app.OpCopyOut, err)
		}
		appCtx.Printf("Copied %s to %s\n", joinPath(copyOutPath, args[0]), args[1])
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := filesystemService().DeleteFile(appCtx, appCtx.ContainerPath, removePath, args[0]); err != nil {
			return wrapError(app.OpRemove, err)
		}
		appCtx.Printf("Deleted %s\n", joinPath(removePath, args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(copyInCmd, copyOutCmd, removeCmd)

	copyInCmd.Flags().StringVarP(&copyInPath, "path", "p", "/", "target directory")
	copyOutCmd.Flags().StringVarP(&copyOutPath, "path", "p", "/", "source directory")
	removeCmd.Flags().StringVarP(&removePath, "path", "p", "/", "directory holding the file")
}
