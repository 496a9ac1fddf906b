package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// withOutput runs fn against the destination the user asked for, stdout
// when path is empty.
func withOutput(path string, fn func(w io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJson(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(encoded, '\n'))
	return err
}

func writeCsv(w io.Writer, columns []string, rows []map[string]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = formatCell(row[col])
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderTable(w io.Writer, columns []string, rows []map[string]any) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	header := table.Row{}
	for _, col := range columns {
		header = append(header, col)
	}
	t.AppendHeader(header)

	for _, row := range rows {
		cells := table.Row{}
		for _, col := range columns {
			cells = append(cells, formatCell(row[col]))
		}
		t.AppendRow(cells)
	}
	t.Render()
}

// writeRows dispatches on the output format shared by the tabular
// commands.
func writeRows(w io.Writer, format string, columns []string, rows []map[string]any) error {
	switch format {
	case "json":
		return writeJson(w, rows)
	case "csv":
		return writeCsv(w, columns, rows)
	case "table":
		renderTable(w, columns, rows)
		return nil
	default:
		return fmt.Errorf("format %q is not one of json, csv, table", format)
	}
}

// formatCell renders one value for csv and table cells. Composite
// values print as compact json, nil prints empty.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

// jsonRow reduces v to the generic map shape its json form has, so
// every output path deals in the same value types.
func jsonRow(v any) (map[string]any, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	if err := json.Unmarshal(encoded, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// projectRow keeps only the given columns of a row.
func projectRow(row map[string]any, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, col := range columns {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

// intersect keeps the entries of order that also appear in allowed.
func intersect(order, allowed []string) []string {
	out := []string{}
	for _, entry := range order {
		if slices.Contains(allowed, entry) {
			out = append(out, entry)
		}
	}
	return out
}

// unionColumns is the sorted union of keys across rows, for outputs
// whose column set is not fixed up front.
func unionColumns(rows []map[string]any) []string {
	set := map[string]bool{}
	for _, row := range rows {
		for k := range row {
			set[k] = true
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
