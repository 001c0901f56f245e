package exporter

import (
	"fmt"
	"io"

	"pqmeta/pkg/contracts/domain"
)

// Encoder writes a Document in one external format
type Encoder interface {
	Encode(w io.Writer, doc *Document) error
	Format() domain.ReportFormat
}

// EncoderFor returns the encoder for a report format
func EncoderFor(format domain.ReportFormat) (Encoder, error) {
	switch format {
	case domain.ReportFormatExcel:
		return NewXLSXEncoder(), nil
	case domain.ReportFormatCSV:
		return NewCSVEncoder(SheetColumns), nil
	case domain.ReportFormatParquet:
		return NewParquetEncoder(), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
