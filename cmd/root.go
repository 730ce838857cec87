// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/promptrelay/internal/config"
	"github.com/xkilldash9x/promptrelay/internal/observability"
	"github.com/xkilldash9x/promptrelay/internal/provider"
)

var (
	cfgFile string
	cfg     *config.Config
)

// NewRootCommand builds a fresh root command tree. Each invocation gets its
// own instance so flag state never leaks between runs.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "promptrelay",
		Short:   "promptrelay drives conversational-AI web front ends and recovers their answers.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(); err != nil {
				return err
			}

			loaded, err := config.Load(viper.GetViper())
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "promptrelay",
				})
				return err
			}
			cfg = loaded
			observability.InitializeLogger(cfg.Logger)

			// Operator-supplied endpoint fragments extend the built-in
			// capture heuristics.
			for name, fragments := range cfg.Providers.ExtraEndpoints {
				provider.AddEndpoints(name, fragments)
			}

			observability.GetLogger().Debug("Starting promptrelay.", zap.String("version", Version))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./promptrelay.yaml)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newAskCommand())
	root.AddCommand(newProvidersCommand())

	return root
}

// Execute runs the CLI with the given signal-aware context.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed.", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// initializeConfig reads the config file and environment.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName("promptrelay")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PROMPTRELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}
	return nil
}
