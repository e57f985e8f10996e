package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-blockfs/internal/types"
	"github.com/deploymenttheory/go-blockfs/pkg/app"
	"github.com/deploymenttheory/go-blockfs/pkg/app/listing"
)

// errIntegrity marks a verify run that completed but found problems.
var errIntegrity = fmt.Errorf("%w: integrity check found problems", types.ErrCorruptFormat)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show container geometry and usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := containerService().GetContainerInfo(appCtx, appCtx.ContainerPath)
		if err != nil {
			return wrapError(app.OpInfo, err)
		}
		return listing.FormatInfo(appCtx.Out, &info, appCtx.OutputFormat)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check block references and refcounts",
	Long: `Cross-check every file's block list against the block table.

Reports blocks whose refcount disagrees with the number of file references,
references to unallocated blocks, allocated blocks nothing references, and
files whose parent directory no longer exists. Exits non-zero when any
problem is found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := containerService().VerifyContainer(appCtx, appCtx.ContainerPath)
		if err != nil {
			return wrapError(app.OpVerify, err)
		}
		if err := listing.FormatIntegrity(appCtx.Out, report, appCtx.OutputFormat); err != nil {
			return err
		}
		if !report.Healthy() {
			return app.NewError(app.OpVerify, errIntegrity)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd, verifyCmd)
}
