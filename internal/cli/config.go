package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect expiry-tracker configuration",
	Long: `Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (DB_URL, SQLITE_PATH, GRPC_ADDR, SMTP_HOST, ...)
3. Config file (~/.expiry-tracker/config.yaml or ./config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := common.ConfigFrom(viper.GetViper())
		if f := viper.ConfigFileUsed(); f != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", f)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (defaults and environment only)\n\n")
		}
		if err := writeConfig(cmd.OutOrStdout(), cfg.Redacted()); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("invalid: "+err.Error()))
		}
		return nil
	},
}

func writeConfig(w io.Writer, cfg common.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}
