package resultsdb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"cukereport/pkg/listener"
)

// nullable converts an empty string into a SQL NULL argument.
func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func details(d *listener.StatusDetails) (string, string) {
	if d == nil {
		return "", ""
	}
	return d.Message, d.Trace
}

// encodeJSON renders a slice column; empty slices are stored as NULL.
func encodeJSON[T any](values []T) (interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return string(data), nil
}

func decodeJSON[T any](column *string) ([]T, error) {
	if column == nil || *column == "" {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(*column), &out); err != nil {
		return nil, fmt.Errorf("decode json column: %w", err)
	}
	return out, nil
}

func fingerprintBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// stepPath numbers nested steps as "0", "0.1", "0.1.2".
func stepPath(prefix string, index int) string {
	if prefix == "" {
		return strconv.Itoa(index)
	}
	return prefix + "." + strconv.Itoa(index)
}
