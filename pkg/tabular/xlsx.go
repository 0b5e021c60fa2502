package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXReader parses the first sheet of an Office Open XML workbook.
type XLSXReader struct{}

// NewXLSX returns an XLSX reader.
func NewXLSX() *XLSXReader {
	return &XLSXReader{}
}

// Read parses the first sheet. Cells come back as display strings; blank
// rows are skipped but still advance the file row number.
func (*XLSXReader) Read(r io.Reader) (*Document, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return &Document{}, nil
	}

	records, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
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
