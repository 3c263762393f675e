// Package storage provides persistent storage for target encoder fit reports.
// It uses BoltDB as the underlying storage engine and keys every report by
// categorical column and fit time so that the history of a column can be
// queried by time range.
//
// Reports carry the category distribution and a fingerprint of the fitted
// columns, never the learned mapping or encoded values.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"target-encoder/internal/common"
	"target-encoder/internal/encoding"

	"go.etcd.io/bbolt"
)

// ErrNoReports is returned by LatestReport when a column has no stored report.
var ErrNoReports = errors.New("no reports stored")

// ReportRecord is one stored fit.
type ReportRecord struct {
	Column      string                  `json:"column"`
	Target      string                  `json:"target"`
	Timestamp   time.Time               `json:"timestamp"`
	Fingerprint uint64                  `json:"fingerprint"`
	Report      encoding.Report[string] `json:"report"`
}

// Store provides persistent storage for fit reports using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates the reports bucket.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, common.ReportsDBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(common.ReportsBucket)); err != nil {
			return fmt.Errorf("create reports bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// SaveReport stores a report record under "column_timestamp". A record
// without a timestamp is stamped with the current time.
func (s *Store) SaveReport(record ReportRecord) error {
	if record.Column == "" {
		return errors.New("report record needs a column")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(common.ReportsBucket))
		return b.Put(reportKey(record.Column, record.Timestamp.UnixNano()), data)
	})
}

// GetReports retrieves the reports of a column fitted within [start, end],
// ordered by timestamp.
func (s *Store) GetReports(column string, start, end time.Time) ([]ReportRecord, error) {
	var records []ReportRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(common.ReportsBucket)).Cursor()

		prefix := []byte(column + "_")
		endKey := reportKey(column, end.UnixNano())

		for k, v := c.Seek(reportKey(column, start.UnixNano())); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !isReportKey(k, prefix) {
				continue
			}

			record, err := decodeReport(v)
			if err != nil {
				continue // Skip malformed records
			}
			records = append(records, record)
		}
		return nil
	})

	return records, err
}

// LatestReport returns the most recent report of a column.
func (s *Store) LatestReport(column string) (ReportRecord, error) {
	var record ReportRecord
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(common.ReportsBucket)).Cursor()
		prefix := []byte(column + "_")

		k, v := c.Seek(reportKey(column, math.MaxInt64))
		if k == nil {
			k, v = c.Last()
		} else if !bytes.Equal(k, reportKey(column, math.MaxInt64)) {
			k, v = c.Prev()
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
			if !isReportKey(k, prefix) {
				continue
			}
			decoded, err := decodeReport(v)
			if err != nil {
				continue
			}
			record, found = decoded, true
			return nil
		}
		return nil
	})
	if err != nil {
		return ReportRecord{}, err
	}
	if !found {
		return ReportRecord{}, fmt.Errorf("%w for column %q", ErrNoReports, column)
	}
	return record, nil
}

func decodeReport(data []byte) (ReportRecord, error) {
	var record ReportRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ReportRecord{}, err
	}
	// Strategy is serialized by name only.
	strategy, err := encoding.ParseStrategy(record.Report.StrategyName)
	if err != nil {
		return ReportRecord{}, err
	}
	record.Report.Strategy = strategy
	return record, nil
}

// reportKey zero-pads the timestamp so keys of one column sort by time.
func reportKey(column string, ts int64) []byte {
	if ts < 0 {
		ts = 0
	}
	return []byte(fmt.Sprintf("%s_%019d", column, ts))
}

// isReportKey reports whether k is prefix followed by exactly a padded
// timestamp, so that column "a" does not pick up the keys of column "a_b".
func isReportKey(k, prefix []byte) bool {
	if !bytes.HasPrefix(k, prefix) {
		return false
	}
	rest := k[len(prefix):]
	if len(rest) != 19 {
		return false
	}
	for _, ch := range rest {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
