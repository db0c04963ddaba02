package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/MKhiriev/go-sync-keeper/models"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// OutputFormatter writes command results in the selected format. text is
// used for the text format; json and yaml encode data.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func (f *OutputFormatter) Print(data any, text func(w io.Writer) error) error {
	switch f.Format {
	case FormatJSON:
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(f.Writer)
	}
}

// writeRecords prints one line per record: the id, then the remaining
// fields as JSON.
func writeRecords(w io.Writer, records []models.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFIELDS")
	for _, r := range records {
		fields, err := json.Marshal(r.WithoutID())
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.ID(), fields)
	}
	return tw.Flush()
}

// parseRecord reads a JSON object from a command argument.
func parseRecord(raw string) (models.Record, error) {
	var record models.Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("record must be a JSON object: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("record must be a JSON object, got %s", raw)
	}
	return record, nil
}
