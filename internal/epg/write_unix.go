// SPDX-License-Identifier: MIT

//go:build !windows

package epg

import (
	"fmt"

	"github.com/google/renameio/v2"
)

// WriteFile atomically replaces path with the serialized document. Readers
// see the old or the new file, never a partial one.
func WriteFile(path string, tv *TV) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending XMLTV file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := Encode(pending, tv); err != nil {
		return fmt.Errorf("write XMLTV data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace XMLTV file: %w", err)
	}
	return nil
}
