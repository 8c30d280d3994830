package chart

import (
	"sort"

	"strategy-alerts/internal/alert"
	"strategy-alerts/internal/filter"
)

// Select returns the records of spec.Name that satisfy every criterion of
// spec, ordered by timestamp. Records sharing a timestamp keep their input
// order, so callers must pass records in store order. An empty result is
// not an error.
func Select(records []alert.Record, spec filter.Spec) ([]alert.Record, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	matched := make([]alert.Record, 0, len(records))
	for _, rec := range records {
		if rec.StrategyName != spec.Name {
			continue
		}
		if !spec.Matches(rec.Timestamp) {
			continue
		}
		matched = append(matched, rec)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	return matched, nil
}
