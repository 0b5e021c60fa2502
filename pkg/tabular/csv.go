package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// CSVReader parses comma-separated files. Files from the wild arrive in a
// handful of encodings; UTF-8 (with or without BOM) is tried first, then the
// legacy code pages in fallback order.
type CSVReader struct{}

// NewCSV returns a CSV reader.
func NewCSV() *CSVReader {
	return &CSVReader{}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fallbackEncodings are tried in order when the input is not valid UTF-8.
var fallbackEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"windows-1256", charmap.Windows1256},
	{"windows-1252", charmap.Windows1252},
	{"latin-1", charmap.ISO8859_1},
}

// decode transcodes raw bytes to UTF-8, stripping any BOM.
func decode(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if utf8.Valid(raw) {
		return raw, nil
	}

	for _, fallback := range fallbackEncodings {
		decoded, err := fallback.enc.NewDecoder().Bytes(raw)
		if err == nil && utf8.Valid(decoded) {
			return decoded, nil
		}
	}

	return nil, fmt.Errorf("could not decode file contents (tried utf-8, windows-1256, windows-1252, latin-1)")
}

// Read parses the whole file. Ragged rows are tolerated; fully blank rows
// are skipped but still advance the file row number.
func (*CSVReader) Read(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	decoded, err := decode(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	doc := &Document{}
	for i, record := range records {
		number := i + 1
		if doc.Headers == nil {
			if isEmptyRow(record) {
				continue
			}
			doc.Headers = record
			continue
		}
		if isEmptyRow(record) {
			continue
		}
		doc.Rows = append(doc.Rows, Row{Number: number, Values: record})
	}
	return doc, nil
}
