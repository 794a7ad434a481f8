// Package output renders command results as JSON, YAML or aligned tables.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	jsonIndentConstant           = "  "
	yamlIndentConstant           = 2
	tableMinimumWidthConstant    = 0
	tableTabWidthConstant        = 4
	tablePaddingConstant         = 2
	tablePaddingCharacter        = ' '
	tableColumnSeparatorConstant = "\t"
	unsupportedFormatTemplate    = "unsupported output format %q"
)

// Format selects how a printer renders values.
type Format string

// Supported output formats.
const (
	FormatJSON  Format = Format("json")
	FormatYAML  Format = Format("yaml")
	FormatTable Format = Format("table")
)

// SupportedFormats lists the accepted format names.
func SupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatTable)}
}

// ParseFormat normalizes a format name. An empty name selects fallback.
func ParseFormat(formatName string, fallback Format) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(formatName)) {
	case "":
		return fallback, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatTable):
		return FormatTable, nil
	default:
		return "", fmt.Errorf(unsupportedFormatTemplate, formatName)
	}
}

// Table is a header row plus data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tabular is implemented by values that have a table rendering.
type Tabular interface {
	Table() Table
}

// Printer writes values to a writer in one format.
type Printer struct {
	format Format
	writer io.Writer
}

// NewPrinter creates a printer.
func NewPrinter(format Format, writer io.Writer) *Printer {
	return &Printer{format: format, writer: writer}
}

// Print renders data. Values that are not Tabular fall back to JSON in table mode.
func (printer *Printer) Print(data any) error {
	switch printer.format {
	case FormatYAML:
		return printer.printYAML(data)
	case FormatTable:
		if tabular, isTabular := data.(Tabular); isTabular {
			return printer.printTable(tabular.Table())
		}
		return printer.printJSON(data)
	default:
		return printer.printJSON(data)
	}
}

func (printer *Printer) printJSON(data any) error {
	encoder := json.NewEncoder(printer.writer)
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(data)
}

func (printer *Printer) printYAML(data any) error {
	encoder := yaml.NewEncoder(printer.writer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(normalizeForYAML(data)); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

func (printer *Printer) printTable(table Table) error {
	tableWriter := tabwriter.NewWriter(printer.writer, tableMinimumWidthConstant, tableTabWidthConstant, tablePaddingConstant, tablePaddingCharacter, 0)
	if len(table.Headers) > 0 {
		if _, writeError := fmt.Fprintln(tableWriter, strings.Join(table.Headers, tableColumnSeparatorConstant)); writeError != nil {
			return writeError
		}
	}
	for _, row := range table.Rows {
		if _, writeError := fmt.Fprintln(tableWriter, strings.Join(row, tableColumnSeparatorConstant)); writeError != nil {
			return writeError
		}
	}
	return tableWriter.Flush()
}

// normalizeForYAML routes values through JSON so struct json tags and json.Number results render as YAML expects.
func normalizeForYAML(data any) any {
	encoded, marshalError := json.Marshal(data)
	if marshalError != nil {
		return data
	}
	var normalized any
	if unmarshalError := yaml.Unmarshal(encoded, &normalized); unmarshalError != nil {
		return data
	}
	return normalized
}
