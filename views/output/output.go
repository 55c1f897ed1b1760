// Package output renders view state as a text table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (table, json, yaml)", s)
}

// Table is the text form of a view.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Footer  string
}

// Renderable is implemented by view states that know their table and structured forms.
type Renderable interface {
	Table() Table
	Data() any
}

// Render writes v in format f.
func Render(w io.Writer, f Format, v Renderable) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v.Data())
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v.Data()); err != nil {
			return err
		}
		return enc.Close()
	default:
		return WriteTable(w, v.Table())
	}
}

func WriteTable(w io.Writer, t Table) error {
	if t.Title != "" {
		if _, err := fmt.Fprintln(w, t.Title); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if t.Footer != "" {
		_, err := fmt.Fprintln(w, t.Footer)
		return err
	}
	return nil
}

// ErrorPanel reports a failed load. Rows already on screen stay visible under it.
func ErrorPanel(w io.Writer, err error, retry string) {
	fmt.Fprintf(w, "! %v\n", err)
	if retry != "" {
		fmt.Fprintf(w, "  retry with: %s\n", retry)
	}
}
