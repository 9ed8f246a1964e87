package validator

import (
	"context"

	"github.com/mixelka/traceidx/pkg/models"
)

// Summary aggregates anomaly counts for reporting.
type Summary struct {
	Total      int
	ByType     map[models.AnomalyType]int
	Unresolved int
}

// Summarize reduces the anomaly store to counts. A non-empty scope
// restricts the summary to anomalies recorded against that file path;
// otherwise all currently unresolved anomalies are counted. Without a
// store the summary is all zeros.
func (v *Validator) Summarize(ctx context.Context, scope string) (Summary, error) {
	summary := Summary{ByType: make(map[models.AnomalyType]int)}

	if v.store == nil {
		return summary, nil
	}

	var (
		anomalies []*models.IndexAnomaly
		err       error
	)
	if scope != "" {
		anomalies, err = v.store.FindAnomaliesByPath(ctx, scope)
	} else {
		anomalies, err = v.store.FindUnresolvedAnomalies(ctx)
	}
	if err != nil {
		return Summary{}, err
	}

	summary.Total = len(anomalies)
	for _, a := range anomalies {
		summary.ByType[a.AnomalyType]++
		if !a.Resolved {
			summary.Unresolved++
		}
	}

	return summary, nil
}
