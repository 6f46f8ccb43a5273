package payload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadSample reads the per-operation fallback sample payload from
// <dir>/<operation>.json. Samples supply values for fields extraction could
// not fill.
func LoadSample(dir, operation string) (map[string]any, error) {
	path := filepath.Join(dir, operation+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample for %s: %w", operation, err)
	}
	var sample map[string]any
	if err := json.Unmarshal(raw, &sample); err != nil {
		return nil, fmt.Errorf("parse sample for %s: %w", operation, err)
	}
	return sample, nil
}
