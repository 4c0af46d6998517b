package storage

import (
	"fmt"
	"strings"
)

// validateKey rejects keys that cannot be mapped safely onto every backend.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty storage key")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("storage key must be relative: %s", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." || segment == "" {
			return fmt.Errorf("invalid storage key segment in %q", key)
		}
	}
	return nil
}
