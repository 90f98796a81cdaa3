package history

import (
	"sort"

	"github.com/ripesense/ripesense/pkg/classification"
)

// normalizeLimit enforces consistent limit constraints across all store
// implementations.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// applyListOptions sorts records by creation time and truncates to the
// requested limit.
func applyListOptions(records []*ScanRecord, opts ListOptions) []*ScanRecord {
	sort.SliceStable(records, func(i, j int) bool {
		if opts.Order == "asc" {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	limit := normalizeLimit(opts.Limit)
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// copyRecord returns a copy that doesn't alias the original's prediction slice.
func copyRecord(record *ScanRecord) *ScanRecord {
	dup := *record
	dup.Predictions = append([]classification.PredictionScore(nil), record.Predictions...)
	return &dup
}
