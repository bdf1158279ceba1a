package utils

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
)

const BufferSize = 64 * 1024

// CSVWriter streams rows through a buffered csv.Writer.
type CSVWriter struct {
	buffer *bufio.Writer
	csv    *csv.Writer
	rows   int
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	buffer := bufio.NewWriterSize(w, BufferSize)
	return &CSVWriter{
		buffer: buffer,
		csv:    csv.NewWriter(buffer),
	}
}

func (w *CSVWriter) WriteHeaders(headers []string) error {
	if err := w.csv.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	return nil
}

func (w *CSVWriter) WriteRow(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", w.rows+1, err)
	}
	w.rows++
	return nil
}

// Rows is the number of data rows written, headers excluded.
func (w *CSVWriter) Rows() int {
	return w.rows
}

func (w *CSVWriter) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := w.buffer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return nil
}
