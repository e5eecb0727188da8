// Package export encodes a registration projection into a downloadable file.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// File is an encoded export ready to be sent.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

func Encode(p domain.Projection, format Format, at time.Time) (File, error) {
	name := fmt.Sprintf("registrasi-uiso-%s.%s", at.Format("2006-01-02"), format)

	switch format {
	case FormatXLSX:
		body, err := encodeXLSX(p)
		if err != nil {
			return File{}, fmt.Errorf("encodeXLSX -> %w", err)
		}
		return File{
			Name:        name,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil
	case FormatCSV:
		body, err := encodeCSV(p)
		if err != nil {
			return File{}, fmt.Errorf("encodeCSV -> %w", err)
		}
		return File{
			Name:        name,
			ContentType: "text/csv; charset=utf-8",
			Body:        body,
		}, nil
	}

	return File{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func encodeXLSX(p domain.Projection) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", p.Main.Name); err != nil {
		return nil, err
	}
	if err := writeSheet(f, p.Main); err != nil {
		return nil, err
	}

	if p.Team != nil {
		if _, err := f.NewSheet(p.Team.Name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, *p.Team); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s domain.Sheet) error {
	sw, err := f.NewStreamWriter(s.Name)
	if err != nil {
		return err
	}

	if err := sw.SetRow("A1", toCells(s.Headers)); err != nil {
		return err
	}
	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return err
		}
	}

	return sw.Flush()
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// encodeCSV writes the main sheet, then a blank line and the team sheet when
// present.
func encodeCSV(p domain.Projection) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := writeCSVSection(w, p.Main); err != nil {
		return nil, err
	}

	if p.Team != nil {
		w.Flush()
		buf.WriteString("\n")
		if err := writeCSVSection(w, *p.Team); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSVSection(w *csv.Writer, s domain.Sheet) error {
	if err := w.Write(s.Headers); err != nil {
		return err
	}
	for _, row := range s.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
