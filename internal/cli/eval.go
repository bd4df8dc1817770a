package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

type evalOptions struct {
	statsPath string
	sets      []string
	decimals  int
	suffix    string
}

func newEvalCommand(_ *rootOptions) *cobra.Command {
	opts := &evalOptions{}

	cmd := &cobra.Command{
		Use:   "eval <formula>",
		Short: "Evaluate a formula against statistics",
		Long: `Evaluate a formula the way chart calculation does. Missing or
non-numeric inputs print NA instead of failing.

Examples:
  reportctl eval "eventAttendees" --set eventAttendees=482
  reportctl eval "(a / b) * 100" --stats stats.json --decimals 1 --suffix %`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.statsPath, "stats", "", "project statistics (json or yaml)")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "statistic as key=value, repeatable")
	cmd.Flags().IntVar(&opts.decimals, "decimals", -1, "decimal places for the formatted value")
	cmd.Flags().StringVar(&opts.suffix, "suffix", "", "suffix appended to the formatted value")
	return cmd
}

func (o *evalOptions) run(cmd *cobra.Command, expr string) error {
	compiled, err := formula.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid formula: %w", err)
	}

	stats := formula.Stats{}
	if o.statsPath != "" {
		if err := decodeDocument(o.statsPath, &stats); err != nil {
			return err
		}
	}
	for _, kv := range o.sets {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("--set expects key=value, got %q", kv)
		}
		stats[key] = literal(raw)
	}

	formatting := charts.Formatting{Suffix: o.suffix}
	if o.decimals >= 0 {
		formatting.Decimals = charts.Int(o.decimals)
	}

	fmt.Fprintln(cmd.OutOrStdout(), charts.FormatValue(compiled.Eval(stats), formatting))
	return nil
}

// literal reads a --set value as a number when it parses as one
func literal(raw string) interface{} {
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return f
	}
	return raw
}
