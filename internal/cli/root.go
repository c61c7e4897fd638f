package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
	owner     string
)

var rootCmd = &cobra.Command{
	Use:   "expiry-tracker",
	Short: "Read expiry dates off grocery label photos",
	Long: `expiry-tracker reads the text printed on grocery labels (via tesseract),
extracts the expiry date, product name, manufacturer and batch number,
and keeps a list of products with how many days each has left.

Run "expiry-tracker serve" for the gRPC/HTTP API, folder watcher and
daily e-mail digest, or use the one-shot commands below.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.expiry-tracker/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "", "e-mail of the user products belong to (env EXPIRY_OWNER)")

	common.SetDefaults(viper.GetViper())
	_ = viper.BindPFlag("owner", rootCmd.PersistentFlags().Lookup("owner"))
}

// initConfig reads the optional config file; env variables and flags are
// already bound by SetDefaults and BindPFlag.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(home + "/.expiry-tracker")
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig resolves and validates the effective configuration.
func loadConfig() (*common.Config, error) {
	cfg := common.ConfigFrom(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Text output drops the timestamp so
// one-shot commands stay readable.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// setupLogger installs the command logger on stderr so stdout carries only results.
func setupLogger() *slog.Logger {
	logger := newLogger(os.Stderr)
	slog.SetDefault(logger)
	return logger
}
