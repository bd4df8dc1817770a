package charts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bundle is the import document: either {"charts": [...]} or a bare list
type Bundle struct {
	Charts []ChartConfiguration `json:"charts"`
}

// ParseConfigurations reads a YAML or JSON chart bundle. YAML is converted
// through its generic form so both formats share the JSON field names.
func ParseConfigurations(data []byte, format string) ([]ChartConfiguration, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		var generic interface{}
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML: %w", err)
		}
		return parseJSONBundle(converted)
	case "json", "":
		return parseJSONBundle(data)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func parseJSONBundle(data []byte) ([]ChartConfiguration, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty chart bundle")
	}

	var cfgs []ChartConfiguration
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &cfgs); err != nil {
			return nil, fmt.Errorf("failed to parse chart list: %w", err)
		}
	} else {
		var bundle Bundle
		if err := json.Unmarshal(trimmed, &bundle); err != nil {
			return nil, fmt.Errorf("failed to parse chart bundle: %w", err)
		}
		cfgs = bundle.Charts
	}

	seen := make(map[string]bool, len(cfgs))
	for i := range cfgs {
		if seen[cfgs[i].ChartID] {
			return nil, fmt.Errorf("duplicate chartId %q", cfgs[i].ChartID)
		}
		seen[cfgs[i].ChartID] = true
		cfgs[i] = Normalize(cfgs[i])
	}
	return cfgs, nil
}

// FormatFromContentType maps an upload content type or file extension to a
// bundle format
func FormatFromContentType(contentType, filename string) string {
	switch {
	case strings.Contains(contentType, "yaml"), strings.HasSuffix(filename, ".yaml"), strings.HasSuffix(filename, ".yml"):
		return "yaml"
	default:
		return "json"
	}
}
