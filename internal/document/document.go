// Package document reads and appends rows of the fixed-schema tracking
// tables inside an external tabular document. One Adapter carries the
// schema resolution, sequence numbering and cell-text cleanup; the
// storage format itself is a pluggable Backend.
//
// The adapter assumes a single process with a single open handle; no
// file locking is performed, so two adapters writing the same path is
// a race the design does not protect against.
package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/amaumene/watchlog/internal/config"
	"github.com/amaumene/watchlog/internal/models"
)

// SequenceColumn is the column holding the 1-based entry number.
const SequenceColumn = "NO"

var (
	ErrNotOpen        = errors.New("document is not open")
	ErrNoPath         = errors.New("document path is not configured")
	ErrTableIndex     = errors.New("table index out of range")
	ErrColumnNotFound = errors.New("column not found")
	ErrRowIndex       = errors.New("row index out of range")
)

// Backend is the storage strategy behind the adapter. Table indices are
// 1-based, row and column indices 0-based; row 0 is the header.
type Backend interface {
	Open() error
	Close()
	Save() error
	TableCount() int
	Rows(table int) ([][]string, error)
	AppendRow(table int, cells []string) error
	SetCell(table, row, col int, value string) error
}

// Row is one data row read back from a table: the header-resolved cell
// map plus the 0-based data row index used for later cell edits.
type Row struct {
	Index int               `json:"index"`
	Cells map[string]string `json:"cells"`
}

// Adapter exposes the read/append/update operations of the two tracking
// tables. Operations auto-open the document when it is closed.
type Adapter struct {
	backend Backend
	tables  map[models.Kind]int
	schemas map[models.Kind]map[string]int
	opened  bool
	logger  *logrus.Logger
}

// NewAdapter builds an adapter over the backend selected by
// configuration ("docx" or "json").
func NewAdapter(cfg *config.Config, fs afero.Fs, logger *logrus.Logger) *Adapter {
	var backend Backend
	if cfg.DocumentBackend == "json" {
		backend = NewJSONBackend(fs, cfg.DocumentPath)
	} else {
		backend = NewDocxBackend(fs, cfg.DocumentPath)
	}

	return &Adapter{
		backend: backend,
		tables: map[models.Kind]int{
			models.KindMovie:  cfg.MovieTableIndex,
			models.KindSeries: cfg.SeriesTableIndex,
		},
		schemas: map[models.Kind]map[string]int{
			models.KindMovie:  cfg.MovieColumns,
			models.KindSeries: cfg.SeriesColumns,
		},
		logger: logger,
	}
}

// NewAdapterWithBackend builds an adapter over an explicit backend.
func NewAdapterWithBackend(backend Backend, tables map[models.Kind]int, schemas map[models.Kind]map[string]int, logger *logrus.Logger) *Adapter {
	return &Adapter{
		backend: backend,
		tables:  tables,
		schemas: schemas,
		logger:  logger,
	}
}

// Open loads the document and verifies that both configured tables are
// present.
func (a *Adapter) Open() error {
	if a.opened {
		return nil
	}
	if err := a.backend.Open(); err != nil {
		return err
	}

	count := a.backend.TableCount()
	for kind, index := range a.tables {
		if index > count {
			a.backend.Close()
			return fmt.Errorf("%w: %s table expected at position %d, document has %d tables",
				ErrTableIndex, kind, index, count)
		}
	}

	a.opened = true
	return nil
}

// Close releases the document handles, persisting pending changes first
// when save is set. After Close every operation requires a re-open.
func (a *Adapter) Close(save bool) error {
	if !a.opened {
		return nil
	}
	var err error
	if save {
		err = a.backend.Save()
	}
	a.backend.Close()
	a.opened = false
	return err
}

// IsOpen reports whether the document is currently open.
func (a *Adapter) IsOpen() bool {
	return a.opened
}

func (a *Adapter) ensureOpen() error {
	if a.opened {
		return nil
	}
	return a.Open()
}

func (a *Adapter) tableIndex(kind models.Kind) (int, error) {
	index, ok := a.tables[kind]
	if !ok {
		return 0, fmt.Errorf("%w: unknown table kind %q", ErrTableIndex, kind)
	}
	return index, nil
}

// NextSequenceNumber scans the NO column from the last data row upward
// and returns the first numeric value found plus one. An empty table or
// a NO column without any numeric cell yields 1.
func (a *Adapter) NextSequenceNumber(kind models.Kind) (int, error) {
	if err := a.ensureOpen(); err != nil {
		return 0, err
	}
	table, err := a.tableIndex(kind)
	if err != nil {
		return 0, err
	}

	rows, err := a.cleanRows(table)
	if err != nil {
		return 0, err
	}

	noCol, ok := a.schemas[kind][SequenceColumn]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, SequenceColumn)
	}

	for i := len(rows) - 1; i >= 1; i-- {
		if noCol >= len(rows[i]) {
			continue
		}
		if n, err := strconv.Atoi(rows[i][noCol]); err == nil {
			return n + 1, nil
		}
	}
	return 1, nil
}

// AppendRow adds one entry at the end of the table: the next sequence
// number goes into the NO column and every field with a schema mapping
// into its column; unmapped columns stay empty. Existing rows are not
// touched. The document is saved before returning. The assigned
// sequence number is returned.
func (a *Adapter) AppendRow(kind models.Kind, fields map[string]string) (int, error) {
	if err := a.ensureOpen(); err != nil {
		return 0, err
	}
	table, err := a.tableIndex(kind)
	if err != nil {
		return 0, err
	}

	sequence, err := a.NextSequenceNumber(kind)
	if err != nil {
		return 0, err
	}

	schema := a.schemas[kind]
	width := 0
	for _, pos := range schema {
		if pos+1 > width {
			width = pos + 1
		}
	}
	if rows, err := a.cleanRows(table); err == nil && len(rows) > 0 && len(rows[0]) > width {
		width = len(rows[0])
	}

	cells := make([]string, width)
	if pos, ok := schema[SequenceColumn]; ok && pos < width {
		cells[pos] = strconv.Itoa(sequence)
	}
	for name, value := range fields {
		if pos, ok := schema[name]; ok && pos < width {
			cells[pos] = value
		}
	}

	if err := a.backend.AppendRow(table, cells); err != nil {
		return 0, err
	}
	if err := a.backend.Save(); err != nil {
		return 0, err
	}

	a.logger.WithFields(logrus.Fields{
		"kind":     kind,
		"sequence": sequence,
	}).Info("Appended row to tracking table")
	return sequence, nil
}

// ReadRows returns every data row as a column-name to cell-text map.
// Column names come from the table's own header row, not from the
// configured schema, so renamed or reordered documents still read
// correctly.
func (a *Adapter) ReadRows(kind models.Kind) ([]Row, error) {
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}
	table, err := a.tableIndex(kind)
	if err != nil {
		return nil, err
	}

	rows, err := a.cleanRows(table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Row{}, nil
	}

	header := rows[0]
	out := make([]Row, 0, len(rows)-1)
	for i, row := range rows[1:] {
		cells := make(map[string]string, len(header))
		for col, name := range header {
			if name == "" {
				continue
			}
			if col < len(row) {
				cells[name] = row[col]
			} else {
				cells[name] = ""
			}
		}
		out = append(out, Row{Index: i, Cells: cells})
	}
	return out, nil
}

// UpdateCell overwrites exactly one cell, addressed by the 0-based data
// row index from ReadRows and a header column name, then saves. An
// unknown column name fails without modifying the document.
func (a *Adapter) UpdateCell(kind models.Kind, rowIndex int, column, value string) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}
	table, err := a.tableIndex(kind)
	if err != nil {
		return err
	}

	rows, err := a.cleanRows(table)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: table %d has no header row", ErrRowIndex, table)
	}
	if rowIndex < 0 || rowIndex >= len(rows)-1 {
		return fmt.Errorf("%w: %d", ErrRowIndex, rowIndex)
	}

	col := -1
	for i, name := range rows[0] {
		if name == column {
			col = i
			break
		}
	}
	if col < 0 {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}

	if err := a.backend.SetCell(table, rowIndex+1, col, value); err != nil {
		return err
	}
	return a.backend.Save()
}

// cleanRows reads a table and normalizes every cell through
// CleanCellText so both backends return identical representations.
func (a *Adapter) cleanRows(table int) ([][]string, error) {
	rows, err := a.backend.Rows(table)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		for i, cell := range row {
			row[i] = CleanCellText(cell)
		}
	}
	return rows, nil
}

// CleanCellText strips the trailing control characters some document
// backends append to cell text (`\r`, `\a`) and surrounding whitespace.
func CleanCellText(s string) string {
	s = strings.TrimRight(s, "\r\a\x07")
	return strings.TrimSpace(s)
}
