package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/chrissnell/structbreak/internal/log"
	"github.com/chrissnell/structbreak/pkg/config"
)

// cli carries state shared by every subcommand
type cli struct {
	cfgFile string
	envFile string
	debug   bool

	// bindings maps configuration keys to the flags that override them
	bindings map[string]*pflag.Flag

	provider *config.ViperProvider
	config   *config.ConfigData
	logger   *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	c := &cli{bindings: make(map[string]*pflag.Flag)}

	root := &cobra.Command{
		Use:   "structbreak",
		Short: "Detect structural breaks in yearly time series",
		Long: `structbreak finds the years where a yearly series changes regime, splits
the series at those breakpoints and fits a linear trend to each segment.

Run it once against a CSV or Excel file with "structbreak analyze", or start
the web front-end and API with "structbreak serve".

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (STRUCTBREAK_*, also read from .env)
  3. Config file (./structbreak.yaml or ~/.structbreak/structbreak.yaml)
  4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: ./structbreak.yaml, then $HOME/.structbreak/structbreak.yaml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "file of environment variables loaded before the configuration")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "turn on debugging output")
	c.bind("debug", root.PersistentFlags().Lookup("debug"))

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.init()
	}

	root.AddCommand(
		newAnalyzeCmd(c),
		newColumnsCmd(c),
		newServeCmd(c),
		newConfigCmd(c),
		newVersionCmd(),
	)
	return root
}

// bind lets flag override the configuration key
func (c *cli) bind(key string, flag *pflag.Flag) {
	c.bindings[key] = flag
}

// init loads .env, then the configuration, then sets up logging
func (c *cli) init() error {
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return err
	}

	c.provider = config.NewViperProvider(c.cfgFile)
	for key, flag := range c.bindings {
		if err := c.provider.Viper().BindPFlag(key, flag); err != nil {
			return fmt.Errorf("error binding --%s: %w", flag.Name, err)
		}
	}

	cfg, err := c.provider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	c.config = cfg

	if err := log.Init(cfg.Debug); err != nil {
		return err
	}
	c.logger = log.GetSugaredLogger()

	if used := c.provider.ConfigFileUsed(); used != "" {
		c.logger.Debugf("using config file %s", used)
	}
	return nil
}
