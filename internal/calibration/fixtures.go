package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"verity/internal/analysis"
)

// ErrFixtureMissing indicates no fixture file exists for an analyzer. The
// runner logs and skips the analyzer rather than failing the whole pass.
var ErrFixtureMissing = errors.New("calibration fixtures missing")

// Sample is one calibration input with known ground truth. Text analyzers
// fill Truth; PII analyzers fill Entities.
type Sample struct {
	Name     string               `json:"name"`
	Input    string               `json:"input"`
	Truth    string               `json:"truth,omitempty"`
	Entities []analysis.PIIEntity `json:"entities,omitempty"`
}

// FixtureSet is the parsed contents of one analyzer's fixture file.
type FixtureSet struct {
	Samples []Sample `json:"samples"`
}

// LoadFixtures reads <dir>/<analyzerID>.json.
func LoadFixtures(dir, analyzerID string) (*FixtureSet, error) {
	path := filepath.Join(dir, analyzerID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFixtureMissing, path)
		}
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var set FixtureSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return &set, nil
}
