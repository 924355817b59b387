package eligibility

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrColumnNotFound is returned when the header row lacks the requested column.
	ErrColumnNotFound = errors.New("allow-list column not found")
	// ErrEmptySource is returned for a source without a header row.
	ErrEmptySource = errors.New("allow-list source has no header")
)

// LoadAllowList reads a CSV source with a header row and returns the
// non-blank values of the named column in file order.
func LoadAllowList(r io.Reader, column string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("read allow-list header: %w", err)
	}

	idx := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}

	var values []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read allow-list row: %w", err)
		}
		if idx >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[idx])
		if value == "" {
			continue
		}
		values = append(values, value)
	}

	return values, nil
}

// LoadAllowListFile opens path and delegates to LoadAllowList.
func LoadAllowListFile(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open allow-list: %w", err)
	}
	defer f.Close()

	return LoadAllowList(f, column)
}
