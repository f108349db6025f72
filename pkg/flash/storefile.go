package flash

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveFile writes the whole array to path, creating parent directories.
func (d *MemDevice) SaveFile(path string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, d.data, 0644)
}

// LoadFile replaces the array with the contents of path.
// It returns false, nil if the file doesn't exist, leaving the device as is.
func (d *MemDevice) LoadFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) != len(d.data) {
		return false, fmt.Errorf("%w: %s has %d bytes, want %d", ErrImageMismatch, path, len(data), len(d.data))
	}
	copy(d.data, data)
	return true, nil
}
