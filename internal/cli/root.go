// Package cli wires the portfolio commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zachkp/zach-portfolio/internal/config"
	"github.com/Zachkp/zach-portfolio/internal/content"
	"github.com/Zachkp/zach-portfolio/internal/logging"
	"github.com/Zachkp/zach-portfolio/internal/session"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "portfolio",
	Short:         "Personal portfolio server and terminal preview",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./portfolio.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadEnvironment reads the configuration, the page content and sets up logging.
func loadEnvironment() (*config.Config, content.Content, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, content.Content{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, content.Content{}, err
	}
	c, err := content.Load(cfg.ContentPath)
	if err != nil {
		return nil, content.Content{}, err
	}
	return cfg, c, nil
}

// sessionOptions maps configuration and content onto page-session options.
func sessionOptions(cfg *config.Config, c content.Content) session.Options {
	return session.Options{
		Greeting:        cfg.Preloader.Greeting(c.Greetings),
		AgeTarget:       float64(c.Age),
		CountUpDuration: cfg.CountUp.Duration,
		FrameInterval:   cfg.CountUp.FrameInterval,
		Region:          cfg.Visibility.Region,
		Threshold:       cfg.Visibility.Threshold,
		EventBuffer:     cfg.Session.EventBuffer,
	}
}
