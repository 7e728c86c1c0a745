package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

const documentPart = "word/document.xml"

// DocxBackend stores the tracking tables inside a .docx package. The
// package is treated as a zip archive: only word/document.xml is ever
// modified, with targeted splicing inside the target table, and every
// other part is written back byte-for-byte, so styles, images and all
// rows outside the edit survive untouched.
//
// Known constraint: tables nested inside the tracked tables' cells are
// not supported.
type DocxBackend struct {
	fs     afero.Fs
	path   string
	parts  []zipPart
	doc    []byte
	opened bool
}

type zipPart struct {
	name string
	data []byte
}

// NewDocxBackend creates a backend for the .docx file at path.
func NewDocxBackend(fs afero.Fs, path string) *DocxBackend {
	return &DocxBackend{fs: fs, path: path}
}

// Open reads the package into memory.
func (b *DocxBackend) Open() error {
	if b.path == "" {
		return ErrNoPath
	}

	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open document package: %w", err)
	}

	parts := make([]zipPart, 0, len(reader.File))
	var doc []byte
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("failed to open document part %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read document part %s: %w", file.Name, err)
		}
		parts = append(parts, zipPart{name: file.Name, data: content})
		if file.Name == documentPart {
			doc = content
		}
	}
	if doc == nil {
		return fmt.Errorf("%s is not a wordprocessing document: missing %s", b.path, documentPart)
	}

	b.parts = parts
	b.doc = doc
	b.opened = true
	return nil
}

// Close drops the in-memory package without saving.
func (b *DocxBackend) Close() {
	b.parts = nil
	b.doc = nil
	b.opened = false
}

// Save writes the package back to disk, replacing only the document part.
func (b *DocxBackend) Save() error {
	if !b.opened {
		return ErrNotOpen
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for _, part := range b.parts {
		data := part.data
		if part.name == documentPart {
			data = b.doc
		}
		w, err := writer.Create(part.name)
		if err != nil {
			return fmt.Errorf("failed to create document part %s: %w", part.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write document part %s: %w", part.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize document package: %w", err)
	}

	if err := afero.WriteFile(b.fs, b.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// TableCount returns the number of top-level tables in the document.
func (b *DocxBackend) TableCount() int {
	if !b.opened {
		return 0
	}
	return len(elements(b.doc, "w:tbl"))
}

func (b *DocxBackend) table(index int) (xmlElem, error) {
	if !b.opened {
		return xmlElem{}, ErrNotOpen
	}
	tables := elements(b.doc, "w:tbl")
	if index < 1 || index > len(tables) {
		return xmlElem{}, fmt.Errorf("%w: %d of %d", ErrTableIndex, index, len(tables))
	}
	return tables[index-1], nil
}

// Rows extracts the raw cell text of every row in the table.
func (b *DocxBackend) Rows(table int) ([][]string, error) {
	tbl, err := b.table(table)
	if err != nil {
		return nil, err
	}

	inner := b.doc[tbl.innerStart:tbl.innerEnd]
	trs := elements(inner, "w:tr")
	rows := make([][]string, 0, len(trs))
	for _, tr := range trs {
		trInner := inner[tr.innerStart:tr.innerEnd]
		tcs := elements(trInner, "w:tc")
		cells := make([]string, 0, len(tcs))
		for _, tc := range tcs {
			cells = append(cells, cellText(trInner[tc.innerStart:tc.innerEnd]))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// AppendRow splices a new row immediately before the table's closing
// tag, leaving everything else in the document byte-identical.
func (b *DocxBackend) AppendRow(table int, cells []string) error {
	tbl, err := b.table(table)
	if err != nil {
		return err
	}

	var row strings.Builder
	row.WriteString("<w:tr>")
	for _, cell := range cells {
		row.WriteString(`<w:tc><w:tcPr><w:tcW w:w="0" w:type="auto"/></w:tcPr>`)
		row.WriteString(paragraphXML(cell))
		row.WriteString("</w:tc>")
	}
	row.WriteString("</w:tr>")

	b.doc = splice(b.doc, tbl.innerEnd, tbl.innerEnd, []byte(row.String()))
	return nil
}

// SetCell replaces the content of one cell, keeping the cell's
// formatting properties (w:tcPr) in place.
func (b *DocxBackend) SetCell(table, row, col int, value string) error {
	tbl, err := b.table(table)
	if err != nil {
		return err
	}

	inner := b.doc[tbl.innerStart:tbl.innerEnd]
	trs := elements(inner, "w:tr")
	if row < 0 || row >= len(trs) {
		return fmt.Errorf("%w: %d", ErrRowIndex, row)
	}
	tr := trs[row]

	trInner := inner[tr.innerStart:tr.innerEnd]
	tcs := elements(trInner, "w:tc")
	if col < 0 || col >= len(tcs) {
		return fmt.Errorf("%w: column %d of %d", ErrColumnNotFound, col, len(tcs))
	}
	tc := tcs[col]

	cellInner := trInner[tc.innerStart:tc.innerEnd]
	var kept []byte
	if props := elements(cellInner, "w:tcPr"); len(props) > 0 && props[0].start == 0 {
		kept = cellInner[:props[0].end]
	}

	replacement := make([]byte, 0, len(kept)+len(value)+64)
	replacement = append(replacement, kept...)
	replacement = append(replacement, []byte(paragraphXML(value))...)

	// Absolute offsets of the cell's inner content within the document.
	start := tbl.innerStart + tr.innerStart + tc.innerStart
	end := tbl.innerStart + tr.innerStart + tc.innerEnd
	b.doc = splice(b.doc, start, end, replacement)
	return nil
}

// xmlElem is an element's offsets within the slice it was found in:
// [start,end) spans the whole element, [innerStart,innerEnd) its content.
type xmlElem struct {
	start      int
	innerStart int
	innerEnd   int
	end        int
}

// elements finds every occurrence of tag at the current nesting scan
// position, tracking same-tag nesting so a table inside a cell does not
// terminate its parent early. Offsets are relative to src.
func elements(src []byte, tag string) []xmlElem {
	openTag := []byte("<" + tag)
	closeTag := []byte("</" + tag + ">")

	var out []xmlElem
	pos := 0
	for {
		start := findOpen(src, pos, openTag)
		if start < 0 {
			break
		}

		gt := bytes.IndexByte(src[start:], '>')
		if gt < 0 {
			break
		}
		gt += start

		if src[gt-1] == '/' { // self-closing
			out = append(out, xmlElem{start: start, innerStart: gt + 1, innerEnd: gt + 1, end: gt + 1})
			pos = gt + 1
			continue
		}

		innerStart := gt + 1
		depth := 1
		cursor := innerStart
		innerEnd := -1
		end := -1
		for depth > 0 {
			nextClose := bytes.Index(src[cursor:], closeTag)
			if nextClose < 0 {
				break
			}
			nextClose += cursor
			nextOpen := findOpen(src, cursor, openTag)
			if nextOpen >= 0 && nextOpen < nextClose {
				depth++
				cursor = nextOpen + len(openTag)
				continue
			}
			depth--
			if depth == 0 {
				innerEnd = nextClose
				end = nextClose + len(closeTag)
			}
			cursor = nextClose + len(closeTag)
		}
		if innerEnd < 0 {
			break
		}

		out = append(out, xmlElem{start: start, innerStart: innerStart, innerEnd: innerEnd, end: end})
		pos = end
	}
	return out
}

// findOpen locates the next opening occurrence of tag at or after from,
// requiring a tag-name boundary so "w:t" does not match "w:tbl".
func findOpen(src []byte, from int, openTag []byte) int {
	for {
		idx := bytes.Index(src[from:], openTag)
		if idx < 0 {
			return -1
		}
		idx += from
		boundary := idx + len(openTag)
		if boundary < len(src) {
			switch src[boundary] {
			case '>', ' ', '/', '\t', '\r', '\n':
				return idx
			}
		}
		from = idx + 1
	}
}

// cellText concatenates the text runs (w:t elements) of a cell.
func cellText(src []byte) string {
	var sb strings.Builder
	for _, t := range elements(src, "w:t") {
		sb.Write(src[t.innerStart:t.innerEnd])
	}
	return unescapeXML(sb.String())
}

func paragraphXML(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + escapeXML(text) + `</w:t></w:r></w:p>`
}

func splice(src []byte, start, end int, insert []byte) []byte {
	out := make([]byte, 0, len(src)-(end-start)+len(insert))
	out = append(out, src[:start]...)
	out = append(out, insert...)
	out = append(out, src[end:]...)
	return out
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

func unescapeXML(s string) string {
	return xmlUnescaper.Replace(s)
}
