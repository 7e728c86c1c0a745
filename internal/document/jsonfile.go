package document

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// JSONBackend stores the tracking tables in a single JSON file. It is
// the platform-independent alternative to the .docx backend and shares
// its table/row/cell shape: each table is a list of rows, row 0 being
// the header.
type JSONBackend struct {
	fs     afero.Fs
	path   string
	tables []jsonTable
	opened bool
}

type jsonTable struct {
	Rows [][]string `json:"rows"`
}

type jsonDocument struct {
	Tables []jsonTable `json:"tables"`
}

// NewJSONBackend creates a backend for the JSON tables file at path.
func NewJSONBackend(fs afero.Fs, path string) *JSONBackend {
	return &JSONBackend{fs: fs, path: path}
}

// Open reads the tables file into memory.
func (b *JSONBackend) Open() error {
	if b.path == "" {
		return ErrNoPath
	}

	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	b.tables = doc.Tables
	b.opened = true
	return nil
}

// Close drops the in-memory tables without saving.
func (b *JSONBackend) Close() {
	b.tables = nil
	b.opened = false
}

// Save writes the tables back to disk.
func (b *JSONBackend) Save() error {
	if !b.opened {
		return ErrNotOpen
	}

	data, err := json.MarshalIndent(jsonDocument{Tables: b.tables}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := afero.WriteFile(b.fs, b.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// TableCount returns the number of tables in the file.
func (b *JSONBackend) TableCount() int {
	if !b.opened {
		return 0
	}
	return len(b.tables)
}

func (b *JSONBackend) table(index int) (*jsonTable, error) {
	if !b.opened {
		return nil, ErrNotOpen
	}
	if index < 1 || index > len(b.tables) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTableIndex, index, len(b.tables))
	}
	return &b.tables[index-1], nil
}

// Rows returns a copy of the table's rows.
func (b *JSONBackend) Rows(table int) ([][]string, error) {
	t, err := b.table(table)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = append([]string(nil), row...)
	}
	return rows, nil
}

// AppendRow adds a row at the end of the table.
func (b *JSONBackend) AppendRow(table int, cells []string) error {
	t, err := b.table(table)
	if err != nil {
		return err
	}
	t.Rows = append(t.Rows, append([]string(nil), cells...))
	return nil
}

// SetCell overwrites one cell, extending the row when the document's
// header is wider than the stored row.
func (b *JSONBackend) SetCell(table, row, col int, value string) error {
	t, err := b.table(table)
	if err != nil {
		return err
	}
	if row < 0 || row >= len(t.Rows) {
		return fmt.Errorf("%w: %d", ErrRowIndex, row)
	}
	if col < 0 {
		return fmt.Errorf("%w: column %d", ErrColumnNotFound, col)
	}
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
	return nil
}
