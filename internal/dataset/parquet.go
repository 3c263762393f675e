package dataset

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// EncodedRecord is one row of an encoded feature file. Target and Encoded
// are NULL when the cell is empty or the category could not be encoded.
type EncodedRecord struct {
	Row      int64    `parquet:"row"`
	Category string   `parquet:"category,dict"`
	Target   *float64 `parquet:"target,optional"`
	Encoded  *float64 `parquet:"encoded,optional"`
}

// EncodedRecords pairs the category, target and encoded columns row by row.
// The target column is optional; pass "" to leave Target NULL.
func (t *Table) EncodedRecords(categoryCol, targetCol, encodedCol string) ([]EncodedRecord, error) {
	categories, err := t.Column(categoryCol)
	if err != nil {
		return nil, err
	}
	encoded, err := t.Column(encodedCol)
	if err != nil {
		return nil, err
	}
	var targets []string
	if targetCol != "" {
		if targets, err = t.Column(targetCol); err != nil {
			return nil, err
		}
	}

	records := make([]EncodedRecord, t.rows)
	for r := range records {
		records[r] = EncodedRecord{Row: int64(r), Category: categories[r]}
		if records[r].Encoded, err = parseOptional(encoded[r]); err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", encodedCol, r, err)
		}
		if targets != nil {
			if records[r].Target, err = parseOptional(targets[r]); err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", targetCol, r, err)
			}
		}
	}
	return records, nil
}

func parseOptional(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not numeric", cell)
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	return &v, nil
}

// compressionCodec converts a compression name to a parquet writer option.
func compressionCodec(compression string) parquet.WriterOption {
	switch strings.ToLower(compression) {
	case "gzip":
		return parquet.Compression(&parquet.Gzip)
	case "lz4":
		return parquet.Compression(&parquet.Lz4Raw)
	case "zstd":
		return parquet.Compression(&parquet.Zstd)
	case "uncompressed", "none":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// WriteEncodedParquet writes records to a parquet file at path.
func WriteEncodedParquet(path string, records []EncodedRecord, compression string) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to write")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writer := parquet.NewGenericWriter[EncodedRecord](
		file,
		parquet.SchemaOf(new(EncodedRecord)),
		compressionCodec(compression),
		parquet.CreatedBy("target-encoder", "1.0", "0"),
	)
	if _, err := writer.Write(records); err != nil {
		writer.Close()
		file.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to close writer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
