package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lstgretroarc/archive/cmd/extract"
	"github.com/lstgretroarc/archive/cmd/inspect"
	"github.com/lstgretroarc/archive/cmd/pack"
	"github.com/lstgretroarc/archive/cmd/version"
	"github.com/lstgretroarc/archive/internal/archive"
	"github.com/lstgretroarc/archive/internal/config"
	"github.com/lstgretroarc/archive/internal/logging"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lstgretroarc",
	Short: "Read and write LSTGRETROARC content archives",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{}
		if err := viper.Unmarshal(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		if err := logging.Setup(cfg.LogLevel, cfg.LogOutputDir); err != nil {
			return fmt.Errorf("could not set up logging: %w", err)
		}

		if cfg.MasterKey != "" {
			archive.MasterKey = []byte(cfg.MasterKey)
		}

		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stdout and file)")
	rootCmd.PersistentFlags().String("master-key", "", "override the embedded master key (for archives built with a custom key)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "stored in the config as dry_run; no subcommand reads it, so output is still written")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))
	viper.BindPFlag("master_key", rootCmd.PersistentFlags().Lookup("master-key"))
	viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))

	rootCmd.AddCommand(inspect.Cmd)
	rootCmd.AddCommand(extract.Cmd)
	rootCmd.AddCommand(pack.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "lstgretroarc"))
		}
		viper.AddConfigPath("/etc/lstgretroarc")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("LSTGRETROARC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
