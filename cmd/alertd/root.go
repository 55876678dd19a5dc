package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sensordash/alertd/internal/conf"
	"github.com/sensordash/alertd/internal/logger"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "alertd",
		Short:         "Real-time threshold alerts for sensor dashboards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: ./config.yaml, ~/.config/alertd, /etc/alertd)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	cmd.AddCommand(
		newServeCmd(opts),
		newRulesCmd(opts),
		newToneCmd(),
		newVersionCmd(),
	)
	return cmd
}

// load reads the settings and builds the process logger from them.
func (o *rootOptions) load(stderr io.Writer) (*conf.Settings, logger.Logger, error) {
	settings, err := conf.Load(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	level := settings.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	log := logger.NewSlogLoggerWithOptions(stderr, logger.Options{
		Level:    logger.ParseLevel(level),
		Format:   logger.Format(settings.Log.Format),
		Timezone: settings.Main.Location(),
	})
	return settings, log, nil
}
