// Command webanalyze detects the technologies used by websites.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mamamialezatoz/go-webanalyze/internal/config"
	"github.com/mamamialezatoz/go-webanalyze/internal/logger"
)

// Version information
const Version = "0.3.0"

var (
	configFile string

	cfg config.Config
	log *logrus.Entry
)

var rootCmd = &cobra.Command{
	Use:           "webanalyze",
	Short:         "Detect the technologies used by websites",
	Long:          "webanalyze fetches hosts, optionally follows the links on their front page, and reports the technologies found using a wappalyzer signature database.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loader := config.NewLoader(configFile)
		if err := loader.BindFlags(cmd.Flags(), flagKeys(cmd)); err != nil {
			return err
		}

		var err error
		cfg, err = loader.Load()
		if err != nil {
			return err
		}

		l, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}
		log = logrus.NewEntry(l)
		return nil
	},
}

// flagKeys maps configuration keys to the flags a command defines
func flagKeys(cmd *cobra.Command) map[string]string {
	all := map[string]string{
		"workers":   "worker",
		"timeout":   "timeout",
		"crawl":     "crawl",
		"search":    "search",
		"redirect":  "redirect",
		"output":    "output",
		"apps":      "apps",
		"silent":    "silent",
		"log.level": "log-level",
	}

	keys := make(map[string]string)
	for key, name := range all {
		if cmd.Flags().Lookup(name) != nil {
			keys[key] = name
		}
	}
	return keys
}

func init() {
	// Assigned here rather than in the literal to break the rootCmd -> runScan -> updateSignatures -> rootCmd initialization cycle.
	rootCmd.RunE = runScan

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./webanalyze.yaml)")
	rootCmd.PersistentFlags().String("apps", "technologies.json", "technologies definition file")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("silent", false, "avoid printing header")

	flags := rootCmd.Flags()
	flags.StringVar(&scanHost, "host", "", "single host to test")
	flags.StringVar(&scanHosts, "hosts", "", "filename with hosts, one host per line")
	flags.BoolVar(&scanUpdate, "update", false, "update the technologies file before scanning")
	flags.Int("crawl", 0, "links to follow from the root page (0 disables crawling)")
	flags.Int("worker", 4, "number of workers")
	flags.Bool("search", true, "search all subdomains of the host when crawling")
	flags.Bool("redirect", false, "follow redirects on crawled pages")
	flags.String("output", config.OutputStdout, "output format (stdout, csv, json)")
	flags.Duration("timeout", 8*time.Second, "per request timeout")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
