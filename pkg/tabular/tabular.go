// Package tabular reads spreadsheet-like import files (CSV, XLSX) into a
// uniform string-valued document. Cell interpretation is the importer's
// concern; readers only deal with shape and encoding.
package tabular

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Row is one data row. Number is the 1-based position in the file; the
// header occupies row 1, so data rows start at 2.
type Row struct {
	Number int
	Values []string
}

// Document is a parsed file: the header row plus every data row, in file
// order. Headers keeps the raw cell text; canonicalization happens in the
// import layer.
type Document struct {
	Headers []string
	Rows    []Row
}

// Reader parses one file format.
type Reader interface {
	Read(r io.Reader) (*Document, error)
}

// ForFile picks a reader from the file name extension, falling back to the
// content type.
func ForFile(name, contentType string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return NewCSV(), nil
	case ".xlsx":
		return NewXLSX(), nil
	}

	switch contentType {
	case "text/csv":
		return NewCSV(), nil
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return NewXLSX(), nil
	}

	return nil, fmt.Errorf("unsupported import file format: %s", name)
}

// isEmptyRow reports whether every cell is blank after trimming.
func isEmptyRow(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
