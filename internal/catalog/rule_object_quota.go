package catalog

import (
	"context"
	"fmt"
)

// ObjectQuotaRule warns when a transaction leaves the catalog past a soft
// record quota and blocks past the hard quota. Zero disables a limit.
// The view handed to rules already reflects the pending changes.
type ObjectQuotaRule struct {
	SoftLimit int
	HardLimit int
}

func (ObjectQuotaRule) Name() string { return "object_quota" }

func (r ObjectQuotaRule) Evaluate(_ context.Context, view TransactionView, changes []Change) (Result, error) {
	var result Result
	total := len(view.ListRecords())
	offending := ""
	for _, change := range changes {
		if change.Operation == "put" {
			offending = change.Record.Key
		}
	}
	switch {
	case r.HardLimit > 0 && total > r.HardLimit:
		result.Violations = append(result.Violations, Violation{
			Rule:     "object_quota",
			Severity: SeverityBlock,
			Message:  fmt.Sprintf("catalog hard quota of %d records exceeded", r.HardLimit),
			Key:      offending,
		})
	case r.SoftLimit > 0 && total > r.SoftLimit:
		result.Violations = append(result.Violations, Violation{
			Rule:     "object_quota",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("catalog soft quota of %d records exceeded", r.SoftLimit),
			Key:      offending,
		})
	}
	return result, nil
}
