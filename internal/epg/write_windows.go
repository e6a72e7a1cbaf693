// SPDX-License-Identifier: MIT

//go:build windows

package epg

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes to a temp file and renames it over path.
func WriteFile(path string, tv *TV) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".zattoo-epg-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp XMLTV file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := Encode(tmp, tv); err != nil {
		tmp.Close()
		return fmt.Errorf("write XMLTV data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp XMLTV file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename XMLTV file: %w", err)
	}
	return nil
}
