package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-blockfs/internal/disk"
	"github.com/deploymenttheory/go-blockfs/internal/logging"
	"github.com/deploymenttheory/go-blockfs/pkg/app"
	"github.com/deploymenttheory/go-blockfs/pkg/services"
)

var (
	// Global flags
	containerPath string
	configFile    string
	verbose       bool
	quiet         bool
	outputFormat  string

	config *disk.Config
	appCtx = app.NewContext()
)

var rootCmd = &cobra.Command{
	Use:   "blockfs",
	Short: "Single-file block container filesystem",
	Long: `blockfs stores a directory tree inside one host file.

The container holds a superblock, a one-slot write journal, a block table
with content deduplication and reference counts, fixed directory and file
slot tables, and the data blocks themselves. Every command opens the
container, recovers any interrupted write, performs one operation and
closes it again.

Commands:
  create      Create a new container
  info        Show container geometry and usage
  ls          List a directory
  tree        List every directory
  mkdir       Create a directory
  rmdir       Remove a directory and everything beneath it
  cpin        Copy a host file into the container
  cpout       Copy a file out of the container
  rm          Delete a file
  verify      Check block references and refcounts`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// viper caches the resolved config path, so each invocation starts fresh.
		v := viper.New()
		if err := v.BindPFlag("container_path", cmd.Root().PersistentFlags().Lookup("container")); err != nil {
			return err
		}

		loaded, err := disk.LoadConfig(v, configFile)
		if err != nil {
			return err
		}
		config = loaded

		appCtx.ContainerPath = v.GetString("container_path")
		appCtx.OutputFormat = outputFormat
		appCtx.Verbose = verbose
		appCtx.Quiet = quiet

		if used := v.ConfigFileUsed(); used != "" {
			appCtx.Log("Using config file: " + used)
		}

		return logging.Configure(appCtx.LogLevel(config.LogLevel), config.LogFormat, nil)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		appCtx.Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&containerPath, "container", "c", "", "container file (default from config: container.bin)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./blockfs-config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
}

// wrapError classifies err for op. Open failures are reported against the
// open step so the hint points at the container path.
func wrapError(op string, err error) error {
	if errors.Is(err, services.ErrOpenFailed) {
		op = app.OpOpen
	}
	return app.NewError(op, err)
}

func containerService() services.ContainerService {
	cs, _ := services.GetContainerService()
	return cs
}

func filesystemService() services.FilesystemService {
	fs, _ := services.GetFilesystemService()
	return fs
}

func joinPath(dir, name string) string {
	dir = strings.TrimRight(dir, "/")
	return dir + "/" + name
}
