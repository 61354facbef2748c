package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const defaultAddr = "http://localhost:8080"

func main() {
	exitFn(run(os.Args, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

// failure marks errors raised after arguments were accepted; they exit 1
// while argument and flag errors exit 2.
type failure struct {
	err error
}

func (f failure) Error() string { return f.err.Error() }
func (f failure) Unwrap() error { return f.err }

func failf(format string, args ...any) error {
	return failure{err: fmt.Errorf(format, args...)}
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}

	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, err.Error())
	var f failure
	if errors.As(err, &f) {
		return 1
	}
	return 2
}

type clientOptions struct {
	addr    string
	token   string
	jsonOut bool
}

func newRootCmd(stdout io.Writer, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "complybus",
		Short:         "complybus CLI",
		Long:          "Score risk offline, run what-if scenarios and query a running complybus gateway.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errors.New("a command is required")
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	client := &clientOptions{}
	root.PersistentFlags().StringVar(&client.addr, "addr", envOrDefault("COMPLYBUS_ADDR", defaultAddr), "complybus API address")
	root.PersistentFlags().StringVar(&client.token, "token", os.Getenv("COMPLYBUS_API_TOKEN"), "bearer token")
	root.PersistentFlags().BoolVar(&client.jsonOut, "json", false, "print raw JSON")

	root.AddCommand(
		newScoreCmd(),
		newSimulateCmd(),
		newDecisionsCmd(client),
		newReportsCmd(client),
		newAuditCmd(client),
		newLintCmd("config", "Validate a gateway config file", lintConfig),
		newLintCmd("playbook", "Validate a remediation playbook", lintPlaybook),
	)
	return root
}

func envOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}
