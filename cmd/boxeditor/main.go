package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SUSTechPOINTS/boxeditor/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "boxeditor"
)

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "Multi-frame 3D bounding box editor",
	Long: `boxeditor batch-edits one tracked object across the frames of a lidar scene.
Commands are read from stdin, one per line, e.g.

  :SCENE: example 000..099
  :EDIT: example 12
  :MOVE: 0 0.5,0,0
  :SAVE:`,
	Version:       fmt.Sprintf("%s (%s)", CurrentVersion, BuildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		return a.run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var setupDBCmd = &cobra.Command{
	Use:   "setupdb",
	Short: "Create or migrate the schema of the configured storage backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		a.close()
		fmt.Fprintf(cmd.OutOrStdout(), "%s storage ready\n", config.GetStorageConfig().Type)
		return nil
	},
}

func init() {
	cobra.OnInitialize(loadConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config-dir", ".", "directory containing "+config.ConfigFileName)
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("autosave", false, "save and transfer after every box change")

	_ = viper.BindPFlag("configDir", flags.Lookup("config-dir"))
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	_ = viper.BindPFlag("editor.enableAutoSave", flags.Lookup("autosave"))

	rootCmd.AddCommand(setupDBCmd)
}

func loadConfig() {
	if err := config.Load(viper.GetString("configDir")); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
