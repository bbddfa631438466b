package allure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cukereport/pkg/listener"
)

// Results is the parsed content of a results directory.
type Results struct {
	Dir        string
	Cases      []listener.TestResult
	Containers []listener.Container
}

// ReadDir loads every result and container file in dir. Cases are sorted
// by start time, then name.
func ReadDir(dir string) (Results, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Results{}, fmt.Errorf("read results dir: %w", err)
	}
	out := Results{Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		switch {
		case strings.HasSuffix(name, ResultSuffix):
			var result listener.TestResult
			if err := readJSON(path, &result); err != nil {
				return Results{}, err
			}
			out.Cases = append(out.Cases, result)
		case strings.HasSuffix(name, ContainerSuffix):
			var container listener.Container
			if err := readJSON(path, &container); err != nil {
				return Results{}, err
			}
			out.Containers = append(out.Containers, container)
		}
	}
	sort.SliceStable(out.Cases, func(i, j int) bool {
		if out.Cases[i].Start != out.Cases[j].Start {
			return out.Cases[i].Start < out.Cases[j].Start
		}
		return out.Cases[i].Name < out.Cases[j].Name
	})
	return out, nil
}

// CountByStatus tallies case statuses. Cases without a status count as
// unknown.
func (r Results) CountByStatus() map[listener.Status]int {
	counts := make(map[listener.Status]int)
	for _, result := range r.Cases {
		status := result.Status
		if status == "" {
			status = StatusUnknown
		}
		counts[status]++
	}
	return counts
}

// StatusUnknown marks cases written without a status.
const StatusUnknown listener.Status = "unknown"

func readJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
