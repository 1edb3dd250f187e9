package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mamamialezatoz/go-webanalyze/internal/downloader"
	"github.com/mamamialezatoz/go-webanalyze/pkg/webanalyze"
)

var (
	scanHost   string
	scanHosts  string
	scanUpdate bool
)

func runScan(cmd *cobra.Command, _ []string) error {
	if scanHost == "" && scanHosts == "" {
		return errors.New("one of --host or --hosts is required")
	}

	if scanUpdate {
		if err := updateSignatures(cmd, true); err != nil {
			return fmt.Errorf("can not update apps file: %w", err)
		}
		if !cfg.Silent {
			fmt.Fprintln(cmd.OutOrStdout(), "App definition file updated")
		}
	}

	apps, err := lookupFile(cfg.Apps)
	if err != nil {
		return err
	}

	wa, err := webanalyze.New(
		webanalyze.WithDefinitionFile(apps),
		webanalyze.WithMatchTimeout(cfg.RegexTimeout),
		webanalyze.WithMaxBodySize(cfg.MaxBodySize),
		webanalyze.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	jobs, err := buildJobs()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !cfg.Silent {
		printHeader(out, apps)
	}

	writer, err := newResultWriter(cfg.Output, out)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	options := webanalyze.FetchOptions{
		Timeout:            cfg.Timeout,
		UserAgent:          cfg.UserAgent,
		InsecureSkipVerify: cfg.Insecure,
		MaxBodySize:        cfg.MaxBodySize,
	}

	stats, err := wa.Scan(cmd.Context(), jobs, cfg.Workers, options, func(result webanalyze.Result) {
		if result.Error != nil {
			fmt.Fprintf(errOut, "%s error: %v\n", result.Host, result.Error)
			return
		}
		if err := writer.Write(result); err != nil {
			log.WithError(err).Error("failed to write result")
		}
	})
	if err != nil {
		return err
	}

	log.WithField("stats", stats).Debug("scan finished")
	return writer.Flush()
}

func buildJobs() ([]webanalyze.Job, error) {
	hosts := []string{scanHost}
	if scanHost == "" {
		var err error
		hosts, err = readHosts(scanHosts)
		if err != nil {
			return nil, err
		}
	}

	jobs := make([]webanalyze.Job, 0, len(hosts))
	for _, host := range hosts {
		jobs = append(jobs, webanalyze.NewOnlineJob(host, cfg.Crawl, cfg.SearchSubdomains, cfg.FollowRedirects))
	}
	return jobs, nil
}

// readHosts reads one host per line, skipping blank lines
func readHosts(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hosts file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var hosts []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if host := strings.TrimSpace(scanner.Text()); host != "" {
			hosts = append(hosts, host)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hosts file: %w", err)
	}
	return hosts, nil
}

// lookupFile finds name in the working directory, next to the
// executable, or in the home directory. Absolute paths are returned as is.
func lookupFile(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}

	folders := []string{"."}
	if executable, err := os.Executable(); err == nil {
		folders = append(folders, filepath.Dir(executable))
	}
	if home, err := os.UserHomeDir(); err == nil {
		folders = append(folders, home)
	}

	for _, folder := range folders {
		path := filepath.Join(folder, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("could not find the technologies file: %s", name)
}

func printHeader(w io.Writer, apps string) {
	printOption(w, "webanalyze", "v"+Version)
	printOption(w, "workers", cfg.Workers)
	printOption(w, "technologies", apps)
	printOption(w, "crawl count", cfg.Crawl)
	printOption(w, "search subdomains", cfg.SearchSubdomains)
	printOption(w, "follow redirects", cfg.FollowRedirects)
	fmt.Fprintln(w)
}

func printOption(w io.Writer, name string, value any) {
	fmt.Fprintf(w, " :: %-17s : %v\n", name, value)
}

func signaturesConfig(force bool) downloader.Config {
	dl := downloader.DefaultConfig(cfg.Apps)
	dl.BaseURL = cfg.Signatures.URL
	dl.CacheExpiry = cfg.Signatures.CacheExpiry
	dl.Force = force
	dl.Log = log
	return dl
}
