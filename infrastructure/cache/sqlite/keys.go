// ABOUTME: Key and value validation for the SQLite cache
// ABOUTME: Rejects malformed keys and oversized values before they reach SQL

package sqlite

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"content-fetch-api/core/interfaces"
)

const (
	maxKeyLength   = 255
	maxValueLength = 1024 * 1024 // 1MB
)

// validateKey rejects empty, oversized and NUL-containing keys. Keys with
// control characters are accepted, since statements are parameterized, but
// logged because cache keys are built from origins and never contain them.
func validateKey(key string, logger interfaces.Logger) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("key too long: max %d characters", maxKeyLength)
	}
	if strings.Contains(key, "\x00") {
		return errors.New("key cannot contain null bytes")
	}

	if logger != nil && strings.ContainsAny(key, "\n\r\t;'\"\\") {
		logger.Warn("Suspicious pattern detected in cache key", map[string]interface{}{
			"key_length":  len(key),
			"key_preview": preview(key),
		})
	}
	return nil
}

func validateValue(value []byte) error {
	if len(value) > maxValueLength {
		return fmt.Errorf("value too large: max %d bytes", maxValueLength)
	}
	return nil
}

func preview(key string) string {
	const maxPreview = 50
	if len(key) <= maxPreview {
		return key
	}
	return key[:maxPreview] + "..."
}
