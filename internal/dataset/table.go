// Package dataset holds the tabular data the encoder reads and augments.
//
// A Table is column oriented: every column is a slice of raw string cells
// of the same length. Numeric columns are parsed on demand with Floats and
// written back with AppendFloats, where the empty cell stands for a
// missing value.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var ErrColumnNotFound = errors.New("column not found")

// Table is an in-memory, column oriented table.
type Table struct {
	names   []string
	columns [][]string
	index   map[string]int
	rows    int
}

// New builds a table from column names and rows of cells.
func New(names []string, rows [][]string) (*Table, error) {
	t := &Table{index: make(map[string]int, len(names))}
	for i, name := range names {
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		t.index[name] = i
		t.names = append(t.names, name)
		t.columns = append(t.columns, make([]string, 0, len(rows)))
	}
	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", r, len(row), len(names))
		}
		for c, cell := range row {
			t.columns[c] = append(t.columns[c], cell)
		}
	}
	t.rows = len(rows)
	return t, nil
}

// ReadCSV reads a table whose first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv input has no header")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV records: %w", err)
	}
	return New(header, records)
}

// LoadCSV reads a table from a CSV file.
func LoadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	t, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSV writes the header followed by every row.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.names); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	row := make([]string, len(t.names))
	for r := 0; r < t.rows; r++ {
		for c := range t.columns {
			row[c] = t.columns[c][r]
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", r, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveCSV writes the table to a CSV file, replacing it if it exists.
func (t *Table) SaveCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := t.WriteCSV(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Names returns the column names in order.
func (t *Table) Names() []string { return slices.Clone(t.names) }

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the cells of the named column.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return slices.Clone(t.columns[i]), nil
}

// Floats parses the named column as numbers. Empty cells and cells that
// do not parse are reported as errors.
func (t *Table) Floats(name string) ([]float64, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(cells))
	for r, cell := range cells {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %q is not numeric", name, r, cell)
		}
		values[r] = v
	}
	return values, nil
}

// AppendFloats adds a numeric column, or replaces the column of the same
// name. NaN values are written as empty cells.
func (t *Table) AppendFloats(name string, values []float64) error {
	if len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	cells := make([]string, len(values))
	for r, v := range values {
		if !math.IsNaN(v) {
			cells[r] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	if i, ok := t.index[name]; ok {
		t.columns[i] = cells
		return nil
	}
	t.index[name] = len(t.names)
	t.names = append(t.names, name)
	t.columns = append(t.columns, cells)
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		names:   slices.Clone(t.names),
		columns: make([][]string, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
		rows:    t.rows,
	}
	for i, col := range t.columns {
		c.columns[i] = slices.Clone(col)
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}

// Fingerprint hashes the named columns, names included, so that two runs
// over the same data can be recognised.
func (t *Table) Fingerprint(names ...string) (uint64, error) {
	d := xxhash.New()
	for _, name := range names {
		cells, err := t.Column(name)
		if err != nil {
			return 0, err
		}
		_, _ = d.WriteString(name)
		_, _ = d.Write([]byte{0})
		for _, cell := range cells {
			_, _ = d.WriteString(cell)
			_, _ = d.Write([]byte{0x1f})
		}
		_, _ = d.Write([]byte{0x1e})
	}
	return d.Sum64(), nil
}
