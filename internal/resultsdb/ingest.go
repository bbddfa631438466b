package resultsdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cukereport/internal/allure"
)

// IngestStats counts the rows loaded by Ingest.
type IngestStats struct {
	Cases       int
	Containers  int
	Attachments int
}

// Ingest loads an existing results directory. Attachments are stored
// before cases so that case writes can claim them.
func (s *Store) Ingest(ctx context.Context, dir string) (IngestStats, error) {
	results, err := allure.ReadDir(dir)
	if err != nil {
		return IngestStats{}, err
	}
	var stats IngestStats

	entries, err := os.ReadDir(dir)
	if err != nil {
		return IngestStats{}, fmt.Errorf("read results dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), allure.AttachmentMarker) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return stats, fmt.Errorf("read attachment: %w", err)
		}
		if err := s.WriteAttachment(ctx, entry.Name(), data); err != nil {
			return stats, err
		}
		stats.Attachments++
	}

	for _, result := range results.Cases {
		if err := s.WriteResult(ctx, result); err != nil {
			return stats, fmt.Errorf("ingest case %s: %w", result.UUID, err)
		}
		stats.Cases++
	}
	for _, container := range results.Containers {
		if err := s.WriteContainer(ctx, container); err != nil {
			return stats, fmt.Errorf("ingest container %s: %w", container.UUID, err)
		}
		stats.Containers++
	}
	return stats, nil
}
