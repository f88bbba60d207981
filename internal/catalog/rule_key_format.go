package catalog

import (
	"context"
	"fmt"
	"strings"
)

const maxKeyLength = 512

// KeyFormatRule blocks keys that cannot be represented by every backend:
// empty, absolute, traversing, containing whitespace, or overlong.
type KeyFormatRule struct{}

func (KeyFormatRule) Name() string { return "key_format" }

func (KeyFormatRule) Evaluate(_ context.Context, _ TransactionView, changes []Change) (Result, error) {
	var result Result
	for _, change := range changes {
		if change.Operation != "put" {
			continue
		}
		key := change.Record.Key
		if reason := invalidKeyReason(key); reason != "" {
			result.Violations = append(result.Violations, Violation{
				Rule:     "key_format",
				Severity: SeverityBlock,
				Message:  reason,
				Key:      key,
			})
		}
	}
	return result, nil
}

func invalidKeyReason(key string) string {
	switch {
	case strings.TrimSpace(key) == "":
		return "key is empty"
	case strings.HasPrefix(key, "/"):
		return "key must be relative"
	case strings.Contains(key, ".."):
		return "key must not traverse directories"
	case strings.ContainsAny(key, " \t\n"):
		return "key must not contain whitespace"
	case len(key) > maxKeyLength:
		return fmt.Sprintf("key exceeds %d characters", maxKeyLength)
	}
	return ""
}
