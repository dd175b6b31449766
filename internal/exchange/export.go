// Package exchange moves memory records in and out of the store: export to
// JSON, CSV or YAML and ingestion of extraction payloads.
package exchange

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/profile-memory/internal/model"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// ExportLimit caps how many ranked records one export carries.
const ExportLimit = 1000

var csvHeader = []string{"Content", "Category", "Importance", "Tags", "Created At", "Updated At"}

// ParseFormat accepts json, csv, yaml and yml, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", model.NewValidationError("format", fmt.Sprintf("unsupported export format %q (use json, csv or yaml)", s))
	}
}

type yamlDoc struct {
	Memories []model.Memory `yaml:"memories"`
}

// Write encodes records to w in format.
func Write(w io.Writer, format Format, records []model.Memory) error {
	if records == nil {
		records = []model.Memory{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatCSV:
		return writeCSV(w, records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlDoc{Memories: records}); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return model.NewValidationError("format", fmt.Sprintf("unsupported export format %q", format))
	}
}

func writeCSV(w io.Writer, records []model.Memory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Content,
			string(r.Category),
			string(r.Importance),
			strings.Join(r.Tags, ", "),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
