// pendency_test.go: tests for the idempotent upsert, the review transitions
// and the summary aggregation
package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aquatel/hydronet-go/internal/errors"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, performAutoMigration(db, false, "SQLite", ":memory:"))
	return &DataStore{DB: db}
}

func newPendency(pointID uint, hour int) *TreatmentPendency {
	return &TreatmentPendency{
		PointID:        pointID,
		Date:           "2025-06-02",
		AnomalyType:    "flatline",
		Hour:           hour,
		Classification: "technical",
		Confidence:     7.5,
		SuggestedValue: 20.8,
		Method:         "historical_trend",
	}
}

func TestUpsertPendency(t *testing.T) {
	t.Run("creates new row as pending", func(t *testing.T) {
		ds := setupTestDB(t)

		p := newPendency(1, 14)
		require.NoError(t, ds.UpsertPendency(p))
		assert.NotZero(t, p.ID)
		assert.Equal(t, StatusPending, p.Status)
	})

	t.Run("rerun refreshes pending row instead of duplicating", func(t *testing.T) {
		ds := setupTestDB(t)

		first := newPendency(1, 14)
		require.NoError(t, ds.UpsertPendency(first))

		second := newPendency(1, 14)
		second.Confidence = 9.1
		second.SuggestedValue = 21.3
		require.NoError(t, ds.UpsertPendency(second))
		assert.Equal(t, first.ID, second.ID)

		var count int64
		require.NoError(t, ds.DB.Model(&TreatmentPendency{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)

		got, err := ds.GetPendency(first.ID)
		require.NoError(t, err)
		assert.InDelta(t, 9.1, got.Confidence, 1e-9)
		assert.InDelta(t, 21.3, got.SuggestedValue, 1e-9)
	})

	t.Run("different hours create distinct rows", func(t *testing.T) {
		ds := setupTestDB(t)

		require.NoError(t, ds.UpsertPendency(newPendency(1, 14)))
		require.NoError(t, ds.UpsertPendency(newPendency(1, 15)))

		var count int64
		require.NoError(t, ds.DB.Model(&TreatmentPendency{}).Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("finalized row yields ErrConcurrentModification", func(t *testing.T) {
		ds := setupTestDB(t)

		p := newPendency(1, 14)
		require.NoError(t, ds.UpsertPendency(p))
		require.NoError(t, ds.ReviewPendency(p.ID, StatusApproved, nil, ""))

		err := ds.UpsertPendency(newPendency(1, 14))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConcurrentModification))

		// The operator's decision must survive the failed refresh.
		got, err := ds.GetPendency(p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, got.Status)
	})
}

func TestReviewPendency(t *testing.T) {
	t.Run("approve sets status and review time", func(t *testing.T) {
		ds := setupTestDB(t)
		p := newPendency(1, 10)
		require.NoError(t, ds.UpsertPendency(p))

		require.NoError(t, ds.ReviewPendency(p.ID, StatusApproved, nil, ""))

		got, err := ds.GetPendency(p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, got.Status)
		require.NotNil(t, got.ReviewedAt)
		assert.WithinDuration(t, time.Now(), *got.ReviewedAt, time.Minute)
	})

	t.Run("adjust requires a value", func(t *testing.T) {
		ds := setupTestDB(t)
		p := newPendency(1, 10)
		require.NoError(t, ds.UpsertPendency(p))

		err := ds.ReviewPendency(p.ID, StatusAdjusted, nil, "")
		require.Error(t, err)

		v := 18.5
		require.NoError(t, ds.ReviewPendency(p.ID, StatusAdjusted, &v, "meter misread"))

		got, err := ds.GetPendency(p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusAdjusted, got.Status)
		require.NotNil(t, got.AdjustedValue)
		assert.InDelta(t, 18.5, *got.AdjustedValue, 1e-9)
	})

	t.Run("ignore requires a justification", func(t *testing.T) {
		ds := setupTestDB(t)
		p := newPendency(1, 10)
		require.NoError(t, ds.UpsertPendency(p))

		require.Error(t, ds.ReviewPendency(p.ID, StatusIgnored, nil, ""))
		require.NoError(t, ds.ReviewPendency(p.ID, StatusIgnored, nil, "known maintenance window"))
	})

	t.Run("finalized row cannot transition again", func(t *testing.T) {
		ds := setupTestDB(t)
		p := newPendency(1, 10)
		require.NoError(t, ds.UpsertPendency(p))
		require.NoError(t, ds.ReviewPendency(p.ID, StatusApproved, nil, ""))

		err := ds.ReviewPendency(p.ID, StatusIgnored, nil, "changed my mind")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConcurrentModification))
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		ds := setupTestDB(t)
		p := newPendency(1, 10)
		require.NoError(t, ds.UpsertPendency(p))

		require.Error(t, ds.ReviewPendency(p.ID, "archived", nil, ""))
	})

	t.Run("missing row yields ErrNotFound", func(t *testing.T) {
		ds := setupTestDB(t)
		err := ds.ReviewPendency(4242, StatusApproved, nil, "")
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestSearchPendencies(t *testing.T) {
	ds := setupTestDB(t)

	require.NoError(t, ds.DB.Create(&MeasurementPoint{ID: 1, Name: "Macro A", MeterKind: "macro", TelemetryTag: "MAC-A", Active: true}).Error)
	require.NoError(t, ds.DB.Create(&MeasurementPoint{ID: 2, Name: "Pressure B", MeterKind: "pressure", TelemetryTag: "PRS-B", Active: true}).Error)

	seed := []*TreatmentPendency{
		{PointID: 1, Date: "2025-06-02", AnomalyType: "flatline", Hour: 3, Classification: "technical", Confidence: 8.0},
		{PointID: 1, Date: "2025-06-02", AnomalyType: "spike", Hour: 9, Classification: "operational", Confidence: 4.0},
		{PointID: 2, Date: "2025-06-02", AnomalyType: "gap", Hour: 5, Classification: "technical", Confidence: 6.5},
		{PointID: 2, Date: "2025-06-03", AnomalyType: "gap", Hour: 6, Classification: "technical", Confidence: 9.0},
	}
	for _, p := range seed {
		require.NoError(t, ds.UpsertPendency(p))
	}

	t.Run("filter by date", func(t *testing.T) {
		rows, total, err := ds.SearchPendencies(&PendencyFilters{Date: "2025-06-02"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, rows, 3)
	})

	t.Run("filter by classification and confidence floor", func(t *testing.T) {
		rows, total, err := ds.SearchPendencies(&PendencyFilters{Classification: "technical", MinConfidence: 7.0})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		for _, r := range rows {
			assert.GreaterOrEqual(t, r.Confidence, 7.0)
		}
	})

	t.Run("filter by meter kind joins points", func(t *testing.T) {
		_, total, err := ds.SearchPendencies(&PendencyFilters{MeterKind: "pressure"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})

	t.Run("pagination caps and offsets", func(t *testing.T) {
		rows, total, err := ds.SearchPendencies(&PendencyFilters{Limit: 2, Offset: 0})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		assert.Len(t, rows, 2)

		rest, _, err := ds.SearchPendencies(&PendencyFilters{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest, 2)
	})
}

func TestSummary(t *testing.T) {
	ds := setupTestDB(t)
	date := "2025-06-02"

	// 10 pendencies: 6 pending, 2 approved, 1 adjusted, 1 ignored.
	for h := 0; h < 10; h++ {
		p := &TreatmentPendency{
			PointID:        uint(1 + h%3),
			Date:           date,
			AnomalyType:    []string{"flatline", "spike"}[h%2],
			Hour:           h,
			Classification: "technical",
			Confidence:     5.0,
		}
		require.NoError(t, ds.UpsertPendency(p))
		switch h {
		case 0, 1:
			require.NoError(t, ds.ReviewPendency(p.ID, StatusApproved, nil, ""))
		case 2:
			v := 1.0
			require.NoError(t, ds.ReviewPendency(p.ID, StatusAdjusted, &v, "manual reading"))
		case 3:
			require.NoError(t, ds.ReviewPendency(p.ID, StatusIgnored, nil, "planned flush"))
		}
	}

	summary, err := ds.Summary(date)
	require.NoError(t, err)

	assert.EqualValues(t, 10, summary.Total)
	assert.EqualValues(t, 6, summary.Pending)
	assert.EqualValues(t, 2, summary.Approved)
	assert.EqualValues(t, 1, summary.Adjusted)
	assert.EqualValues(t, 1, summary.Ignored)
	assert.EqualValues(t, 10, summary.ByClassification["technical"])
	assert.EqualValues(t, 5, summary.ByAnomalyType["flatline"])
	assert.EqualValues(t, 5, summary.ByAnomalyType["spike"])
	assert.InDelta(t, 5.0, summary.AverageConfidence, 1e-9)
	assert.EqualValues(t, 3, summary.DistinctPoints)

	t.Run("other dates are untouched", func(t *testing.T) {
		other, err := ds.Summary("2025-06-03")
		require.NoError(t, err)
		assert.EqualValues(t, 0, other.Total)
	})
}
