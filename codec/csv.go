package codec

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
	h "github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/stream"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader strips a leading UTF-8 BOM and replaces invalid UTF-8 sequences.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// DecodeCSV reads a CSV document with a header row into a Table.
// Empty cells become nil and short rows are padded with nil.
func DecodeCSV(r io.Reader) (stream.Table, error) {
	cr := csv.NewReader(NewTextReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err == io.EOF {
		return stream.NewTable(), nil
	}
	if err != nil {
		return stream.Table{}, errors.Wrap(err, "error reading CSV header")
	}
	t := stream.NewTable()
	for _, c := range header {
		t.AddColumn(c)
	}
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stream.Table{}, errors.Wrapf(err, "error reading CSV line %v", line)
		}
		rec := stream.NewRecord()
		for i, c := range header {
			var v interface{}
			if i < len(fields) && fields[i] != "" {
				v = fields[i]
			}
			rec.SetData(c, v)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// EncodeCSV writes the given columns of t as a CSV document with a header row.
// Nil values are written as empty cells.
func EncodeCSV(t stream.Table, columns []string) (string, error) {
	b := &bytes.Buffer{}
	w := csv.NewWriter(b)
	if err := w.Write(columns); err != nil {
		return "", errors.Wrap(err, "error writing CSV header")
	}
	line := make([]string, len(columns))
	for _, r := range t.Rows {
		for i, c := range columns {
			line[i] = h.GetStringFromInterface(r.GetData(c))
		}
		if err := w.Write(line); err != nil {
			return "", errors.Wrap(err, "error writing CSV row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, "error flushing CSV")
	}
	return b.String(), nil
}
