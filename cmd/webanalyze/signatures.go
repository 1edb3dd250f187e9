package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mamamialezatoz/go-webanalyze/internal/downloader"
)

var signaturesForce bool

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "Manage the technologies definition file",
}

var signaturesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the latest technologies definition",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return updateSignatures(cmd, signaturesForce)
	},
}

var signaturesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the age of the technologies definition",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dl := signaturesConfig(false)
		status, err := downloader.GetStatus(dl)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetStyle(table.StyleLight)
		tw.AppendRow(table.Row{"Path", status.Path})
		tw.AppendRow(table.Row{"Exists", status.Exists})
		if status.Exists {
			tw.AppendRow(table.Row{"Modified", status.ModTime.Format(time.RFC3339)})
			tw.AppendRow(table.Row{"Age", status.Age.Round(time.Second)})
			tw.AppendRow(table.Row{"Cache expiry", dl.CacheExpiry})
			tw.AppendRow(table.Row{"Fresh", status.Fresh})
			tw.AppendRow(table.Row{"Technologies", status.Technologies})
			tw.AppendRow(table.Row{"Categories", status.Categories})
		}
		tw.Render()
		return nil
	},
}

var signaturesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the technologies definition file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := downloader.Clear(signaturesConfig(false)); err != nil {
			return err
		}
		if !cfg.Silent {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", cfg.Apps)
		}
		return nil
	},
}

func updateSignatures(cmd *cobra.Command, force bool) error {
	updated, err := downloader.Update(cmd.Context(), signaturesConfig(force))
	if err != nil {
		return err
	}
	if !cfg.Silent && cmd != rootCmd {
		if updated {
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", cfg.Apps)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", cfg.Apps)
		}
	}
	return nil
}

func init() {
	signaturesUpdateCmd.Flags().BoolVar(&signaturesForce, "force", false, "download even if the file is fresh")

	signaturesCmd.AddCommand(signaturesUpdateCmd, signaturesStatusCmd, signaturesClearCmd)
	rootCmd.AddCommand(signaturesCmd)
}
