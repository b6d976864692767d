// pendency.go: treatment pendency persistence and the idempotent batch upsert
package datastore

import (
	"fmt"
	"time"

	"github.com/aquatel/hydronet-go/internal/errors"
	"gorm.io/gorm"
)

// UpsertPendency inserts or refreshes one pendency row keyed on
// (point, date, anomaly type, hour). Re-running a batch refreshes scores and
// suggestions of still-pending rows; rows an operator already finalized are
// left untouched and reported as ErrConcurrentModification so the caller can
// skip them.
func (ds *DataStore) UpsertPendency(p *TreatmentPendency) error {
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = time.Now()
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var existing TreatmentPendency
		err := tx.Where("point_id = ? AND date = ? AND anomaly_type = ? AND hour = ?",
			p.PointID, p.Date, p.AnomalyType, p.Hour).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("creating pendency: %w", err)
			}
			getLogger().Info("pendency created",
				"point_id", p.PointID, "date", p.Date, "hour", p.Hour,
				"anomaly_type", p.AnomalyType, "confidence", p.Confidence)
			return nil

		case err != nil:
			return fmt.Errorf("looking up pendency: %w", err)

		case existing.Status != StatusPending:
			return errors.New(errors.ErrConcurrentModification).
				Component("datastore").
				Category(errors.CategoryConflict).
				Context("pendency_id", existing.ID).
				Context("status", existing.Status).
				Build()
		}

		updates := map[string]any{
			"classification":  p.Classification,
			"confidence":      p.Confidence,
			"suggested_value": p.SuggestedValue,
			"method":          p.Method,
			"generated_at":    p.GeneratedAt,
		}
		if err := tx.Model(&TreatmentPendency{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("refreshing pendency %d: %w", existing.ID, err)
		}
		p.ID = existing.ID

		getLogger().Debug("pendency refreshed",
			"pendency_id", existing.ID, "confidence", p.Confidence)
		return nil
	})
}

// GetPendency retrieves a pendency by its id.
func (ds *DataStore) GetPendency(id uint) (TreatmentPendency, error) {
	var p TreatmentPendency
	if err := ds.DB.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TreatmentPendency{}, errors.ErrNotFound
		}
		return TreatmentPendency{}, fmt.Errorf("getting pendency %d: %w", id, err)
	}
	return p, nil
}

// SearchPendencies returns the pendencies matching the filters plus the total
// count for pagination.
func (ds *DataStore) SearchPendencies(filters *PendencyFilters) ([]TreatmentPendency, int64, error) {
	q := ds.DB.Model(&TreatmentPendency{})

	if filters.Date != "" {
		q = q.Where("date = ?", filters.Date)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Classification != "" {
		q = q.Where("classification = ?", filters.Classification)
	}
	if filters.AnomalyType != "" {
		q = q.Where("anomaly_type = ?", filters.AnomalyType)
	}
	if filters.MinConfidence > 0 {
		q = q.Where("confidence >= ?", filters.MinConfidence)
	}
	if filters.MeterKind != "" {
		q = q.Joins("JOIN measurement_points ON measurement_points.id = treatment_pendencies.point_id").
			Where("measurement_points.meter_kind = ?", filters.MeterKind)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting pendencies: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	} else if limit > 1000 {
		limit = 1000
	}

	var rows []TreatmentPendency
	err := q.Order("date DESC, confidence DESC").
		Limit(limit).
		Offset(filters.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("searching pendencies: %w", err)
	}
	return rows, total, nil
}

// ReviewPendency applies an operator decision to a pending row. Approve needs
// nothing extra, adjust needs a numeric value, ignore needs a justification.
// Finalized rows cannot be transitioned again; the row history is the audit
// trail.
func (ds *DataStore) ReviewPendency(id uint, status string, adjustedValue *float64, justification string) error {
	switch status {
	case StatusApproved:
	case StatusAdjusted:
		if adjustedValue == nil {
			return errors.Newf("adjusting pendency %d requires a numeric value", id).
				Component("datastore").
				Category(errors.CategoryValidation).
				Build()
		}
	case StatusIgnored:
		if justification == "" {
			return errors.Newf("ignoring pendency %d requires a justification", id).
				Component("datastore").
				Category(errors.CategoryValidation).
				Build()
		}
	default:
		return errors.Newf("invalid pendency status %q", status).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var p TreatmentPendency
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrNotFound
			}
			return err
		}
		if p.Status != StatusPending {
			return errors.New(errors.ErrConcurrentModification).
				Component("datastore").
				Category(errors.CategoryConflict).
				Context("pendency_id", id).
				Context("status", p.Status).
				Build()
		}

		now := time.Now()
		updates := map[string]any{
			"status":      status,
			"reviewed_at": now,
		}
		if status == StatusAdjusted {
			updates["adjusted_value"] = *adjustedValue
		}
		if justification != "" {
			updates["justification"] = justification
		}
		if err := tx.Model(&TreatmentPendency{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("reviewing pendency %d: %w", id, err)
		}

		getLogger().Info("pendency reviewed",
			"pendency_id", id, "from", p.Status, "to", status)
		return nil
	})
}

// Summary aggregates pendency counts and simple statistics for one reference
// date via read-only queries.
func (ds *DataStore) Summary(date string) (PendencySummary, error) {
	summary := PendencySummary{
		Date:             date,
		ByClassification: make(map[string]int64),
		ByAnomalyType:    make(map[string]int64),
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var statusBuckets []bucket
	if err := ds.DB.Model(&TreatmentPendency{}).
		Select("status as key, COUNT(*) as count").
		Where("date = ?", date).
		Group("status").
		Scan(&statusBuckets).Error; err != nil {
		return summary, fmt.Errorf("aggregating pendency statuses: %w", err)
	}
	for _, b := range statusBuckets {
		summary.Total += b.Count
		switch b.Key {
		case StatusPending:
			summary.Pending = b.Count
		case StatusApproved:
			summary.Approved = b.Count
		case StatusAdjusted:
			summary.Adjusted = b.Count
		case StatusIgnored:
			summary.Ignored = b.Count
		}
	}

	var classBuckets []bucket
	if err := ds.DB.Model(&TreatmentPendency{}).
		Select("classification as key, COUNT(*) as count").
		Where("date = ?", date).
		Group("classification").
		Scan(&classBuckets).Error; err != nil {
		return summary, fmt.Errorf("aggregating pendency classifications: %w", err)
	}
	for _, b := range classBuckets {
		summary.ByClassification[b.Key] = b.Count
	}

	var typeBuckets []bucket
	if err := ds.DB.Model(&TreatmentPendency{}).
		Select("anomaly_type as key, COUNT(*) as count").
		Where("date = ?", date).
		Group("anomaly_type").
		Scan(&typeBuckets).Error; err != nil {
		return summary, fmt.Errorf("aggregating pendency anomaly types: %w", err)
	}
	for _, b := range typeBuckets {
		summary.ByAnomalyType[b.Key] = b.Count
	}

	var stats struct {
		AvgConfidence  float64
		DistinctPoints int64
	}
	if err := ds.DB.Model(&TreatmentPendency{}).
		Select("COALESCE(AVG(confidence), 0) as avg_confidence, COUNT(DISTINCT point_id) as distinct_points").
		Where("date = ?", date).
		Scan(&stats).Error; err != nil {
		return summary, fmt.Errorf("aggregating pendency statistics: %w", err)
	}
	summary.AverageConfidence = stats.AvgConfidence
	summary.DistinctPoints = stats.DistinctPoints

	return summary, nil
}
