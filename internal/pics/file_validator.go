package pics

import (
	"fmt"
	"os"
)

// verifyCopy checks that dst exists and holds expected bytes.
// A short target means the card or the destination failed mid-copy.
func verifyCopy(dst string, expected int64) error {
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("cannot access copied file: %w", err)
	}
	if info.Size() != expected {
		return fmt.Errorf("copied file is %d bytes, expected %d", info.Size(), expected)
	}
	return nil
}
