package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/dashboard"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
)

type renderOptions struct {
	configsPath string
	statsPath   string
	layoutPath  string
	widthPx     float64
	format      string
}

func newRenderCommand(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Calculate and lay out a report from local files",
		Long: `Render a report without a server or database.

--configs takes a JSON or YAML chart bundle, --stats a flat JSON or YAML
object of statistics, and --layout a report layout document. The report
is written to stdout as JSON, or as CSV or XLSX with NA written as N/A.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, root)
		},
	}

	cmd.Flags().StringVar(&opts.configsPath, "configs", "", "chart configuration bundle (json or yaml)")
	cmd.Flags().StringVar(&opts.statsPath, "stats", "", "project statistics (json or yaml)")
	cmd.Flags().StringVar(&opts.layoutPath, "layout", "", "report layout (json or yaml)")
	cmd.Flags().Float64Var(&opts.widthPx, "width", 1200, "row width in pixels")
	cmd.Flags().StringVar(&opts.format, "format", "json", "output format: json | csv | xlsx")
	_ = cmd.MarkFlagRequired("configs")
	_ = cmd.MarkFlagRequired("layout")

	return cmd
}

func (o *renderOptions) run(cmd *cobra.Command, root *rootOptions) error {
	if o.widthPx < 0 || math.IsNaN(o.widthPx) || math.IsInf(o.widthPx, 0) {
		return fmt.Errorf("--width must be a finite, non-negative number")
	}
	format := strings.ToLower(o.format)
	if format != "json" && format != "csv" && format != "xlsx" {
		return fmt.Errorf("unsupported output format: %s", o.format)
	}

	log := root.logger(cmd.ErrOrStderr())

	configs, err := loadConfigurations(o.configsPath)
	if err != nil {
		return err
	}
	validator := charts.NewValidator(charts.NewDefaultRegistry(log.Logger))
	var invalid error
	for _, cfg := range configs {
		if err := validator.Validate(cfg); err != nil {
			invalid = multierror.Append(invalid, err)
		}
	}
	if invalid != nil {
		return invalid
	}

	stats := formula.Stats{}
	if o.statsPath != "" {
		if err := decodeDocument(o.statsPath, &stats); err != nil {
			return err
		}
	}

	var rl models.ReportLayout
	if err := decodeDocument(o.layoutPath, &rl); err != nil {
		return err
	}

	assembler := dashboard.NewAssembler(dashboard.DefaultAssemblerOptions(), log.Logger)
	report := assembler.Assemble(rl, configs, stats, o.widthPx)

	out := cmd.OutOrStdout()
	switch format {
	case "csv":
		return dashboard.WriteCSV(out, report)
	case "xlsx":
		return dashboard.WriteXLSX(out, report)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func loadConfigurations(path string) ([]charts.ChartConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart configurations: %w", err)
	}
	return charts.ParseConfigurations(data, charts.FormatFromContentType("", filepath.Base(path)))
}

// decodeDocument reads a JSON or YAML file into out through the JSON
// field names, so both formats share one schema
func decodeDocument(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var generic interface{}
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if data, err = json.Marshal(generic); err != nil {
			return fmt.Errorf("failed to convert %s: %w", path, err)
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
