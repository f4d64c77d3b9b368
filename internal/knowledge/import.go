package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Record is one entry of a knowledge import file:
//
//	- source: postgres-docs
//	  content: VACUUM reclaims storage occupied by dead tuples.
type Record struct {
	Source  string `mapstructure:"source"`
	Content string `mapstructure:"content"`
}

// Import reads a YAML list of records and stores every entry with content.
// It returns the number of stored records.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	var raw []map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("decode knowledge file: %w", err)
	}

	stored := 0
	for i, item := range raw {
		var rec Record
		if err := mapstructure.WeakDecode(item, &rec); err != nil {
			return stored, fmt.Errorf("decode record %d: %w", i, err)
		}
		if strings.TrimSpace(rec.Content) == "" {
			s.logger.Warn("skipping knowledge record without content", zap.Int("index", i))
			continue
		}
		if _, err := s.Add(ctx, rec.Source, rec.Content); err != nil {
			return stored, fmt.Errorf("store record %d: %w", i, err)
		}
		stored++
	}

	s.logger.Info("imported knowledge records", zap.Int("stored", stored), zap.Int("total", len(raw)))
	return stored, nil
}
