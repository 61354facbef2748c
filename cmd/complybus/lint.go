package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/davidahmann/complybus/internal/config"
	"github.com/davidahmann/complybus/internal/remediation"
)

func newLintCmd(name, short string, lint func(path string, out io.Writer) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "lint <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := lint(args[0], cmd.OutOrStdout()); err != nil {
				return failure{err: err}
			}
			return nil
		},
	})
	return cmd
}

func lintConfig(path string, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ok listen_addr=%s threshold=%d window=%s\n", cfg.ListenAddr, cfg.Monitoring.Threshold, cfg.Monitoring.Window())
	return nil
}

func lintPlaybook(path string, out io.Writer) error {
	loaded, err := remediation.LoadPlaybook(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ok playbook_id=%s playbook_hash=%s rules=%d\n", loaded.Playbook.PlaybookID, loaded.Hash, len(loaded.Playbook.Rules))
	return nil
}
