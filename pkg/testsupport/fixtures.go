package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoadFixture reads a canned payload, joining parts into a path relative to
// the calling package (usually "testdata", "<name>.json").
func LoadFixture(parts ...string) ([]byte, error) {
	path := filepath.Join(parts...)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: fixture %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("testsupport: fixture %s is empty", path)
	}
	return data, nil
}
