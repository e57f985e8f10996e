package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-blockfs/pkg/app"
)

var (
	createBlockSize   int32
	createTotalBlocks int32
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new container",
	Long: `Create a new container file, truncating any existing file at the path.

Geometry defaults come from the config file (block_size, total_blocks) and
can be overridden per invocation.

Examples:
  # Create a container with the default geometry
  blockfs --container disk.bin create

  # Create a small container with 512 byte blocks
  blockfs --container disk.bin create --block-size 512 --total-blocks 64`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().Int32Var(&createBlockSize, "block-size", 0, "block size in bytes (default from config)")
	createCmd.Flags().Int32Var(&createTotalBlocks, "total-blocks", 0, "number of data blocks (default from config)")
}

func runCreate(cmd *cobra.Command) error {
	blockSize, totalBlocks := config.BlockSize, config.TotalBlocks
	if cmd.Flags().Changed("block-size") {
		blockSize = createBlockSize
	}
	if cmd.Flags().Changed("total-blocks") {
		totalBlocks = createTotalBlocks
	}

	info, err := containerService().CreateContainer(appCtx, appCtx.ContainerPath, blockSize, totalBlocks)
	if err != nil {
		return app.NewError(app.OpCreate, err)
	}

	appCtx.Printf("Created %s (%d blocks of %d bytes)\n", info.Path, info.TotalBlocks, info.BlockSize)
	return nil
}
