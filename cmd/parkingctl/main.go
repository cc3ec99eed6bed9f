// Command parkingctl runs the gateway's sanitizers and validators from the
// command line.
//
//	parkingctl sanitize license-plate " abc-1234 "
//	parkingctl validate email user@example.com
//	parkingctl version --json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"parkingapp/internal/config"
	"parkingapp/internal/infrastructure"
	"parkingapp/internal/sanitize"
	"parkingapp/internal/validation"
	"parkingapp/pkg/contracts"
)

// errInvalid makes the process exit non-zero after the result was printed
var errInvalid = errors.New("value is invalid")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "parkingctl",
		Short:         "Sanitize and validate parking gateway input",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newSanitizeCmd(), newValidateCmd(), newVersionCmd())
	return root
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return infrastructure.NewLogger(config.LoggingConfig{Level: level, Format: "text", Output: "stderr"})
}

func presetNames() []string {
	names := make([]string, 0, len(sanitize.Presets))
	for name := range sanitize.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newSanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sanitize <preset> <value>",
		Short:     "Print value after applying a sanitizer preset",
		Long:      "Presets: " + strings.Join(presetNames(), ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: presetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := sanitize.Presets[args[0]]
			if !ok {
				return fmt.Errorf("unknown preset %q, expected one of %s", args[0], strings.Join(presetNames(), ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), fn(args[1]))
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	var (
		state    string
		required bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:       "validate <kind> <value>",
		Short:     "Sanitize and validate a single field",
		Long:      "Kinds: " + strings.Join(validation.Kinds(), ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: validation.Kinds(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			v := validation.NewValidator(validation.NewFormatOracle(), newLogger(cmd))
			rule, err := v.RuleFor(kind, validation.FieldOptions{Required: required, State: state})
			if err != nil {
				return err
			}

			value := validation.SanitizerFor(kind)(args[1])
			res, err := rule(context.Background(), value)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			if err := printResult(cmd.OutOrStdout(), value, res, asJSON); err != nil {
				return err
			}
			if !res.IsValid {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "issuing state for license plates")
	cmd.Flags().BoolVar(&required, "required", false, "treat an empty value as invalid")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printResult(w io.Writer, value string, res validation.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Value string `json:"value"`
			validation.Result
		}{value, res})
	}

	status := "valid"
	if !res.IsValid {
		status = "invalid"
	}
	fmt.Fprintf(w, "%s: %q\n", status, value)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(contracts.GetVersionInfo(""))
			}
			fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")
	return cmd
}
