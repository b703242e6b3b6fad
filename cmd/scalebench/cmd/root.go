package cmd

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/armadaproject/scalebench/internal/common"
	"github.com/armadaproject/scalebench/internal/common/app"
	"github.com/armadaproject/scalebench/internal/common/logging"
	"github.com/armadaproject/scalebench/internal/scalebench"
	"github.com/armadaproject/scalebench/internal/scalebench/configuration"
)

const (
	configFlag        = "config"
	defaultConfigFlag = "default-config"
	userConfigName    = ".scalebench.yaml"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scalebench",
		Short: "scalebench measures Rancher and Kubernetes API latencies under a fixed request rate.",
		Long: `scalebench measures Rancher and Kubernetes API latencies under a fixed request rate.

Every iteration it starts one call of each enabled probe, waits for pulse plus a random jitter,
and moves on. Results are buffered per iteration and appended to a CSV file every saveEvery.

Configuration is read from config/scalebench/config.yaml, then from every file passed with --config
(or $HOME/.scalebench.yaml if none is given). Any key can also be set from the environment, e.g.
SCALEBENCH_ITERATIONS=100. RANCHER_SCALING_URL and RANCHER_SCALING_TOKEN set the Rancher URL and
API token.`,
		SilenceUsage: true,
	}

	addConfigFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		runCmd(scalebench.New()),
		versionCmd(scalebench.New()),
		configCmd(scalebench.New()),
	)

	return cmd
}

func addConfigFlags(flags *pflag.FlagSet) {
	flags.StringSlice(
		configFlag,
		nil,
		"Config file to layer over the defaults. May be repeated; later files take precedence.",
	)
	flags.String(
		defaultConfigFlag,
		configuration.DefaultConfigPath,
		"Directory containing the default config.yaml.",
	)
}

// Run the benchmark. Ctrl-C stops scheduling and saves what has been collected.
func runCmd(a *scalebench.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark and append its results to the output CSV file.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.CreateContextWithShutdown()
			defer cancel()
			if err := a.Run(ctx); err != nil {
				logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Error("benchmark failed")
				return err
			}
			return nil
		},
	}
	return cmd
}

// Print version info and exit.
func versionCmd(a *scalebench.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Version()
		},
	}
	return cmd
}

// Print the effective configuration and exit.
func configCmd(a *scalebench.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration, with secrets redacted.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			common.ConfigureCommandLineLogging()
			return initParams(cmd, a)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.PrintConfig()
		},
	}
	return cmd
}

func initParams(cmd *cobra.Command, a *scalebench.App) error {
	defaultPath, err := cmd.Flags().GetString(defaultConfigFlag)
	if err != nil {
		return errors.WithStack(err)
	}
	userConfigs, err := cmd.Flags().GetStringSlice(configFlag)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(userConfigs) == 0 {
		userConfigs, err = homeConfig()
		if err != nil {
			return err
		}
	}

	config, v, err := configuration.Load(defaultPath, userConfigs)
	if err != nil {
		return err
	}
	a.Config = config
	a.Viper = v
	return nil
}

// homeConfig returns $HOME/.scalebench.yaml if it exists.
func homeConfig() ([]string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	path := filepath.Join(home, userConfigName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return []string{path}, nil
}
