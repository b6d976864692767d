// model.go this code defines the data model for the application
package datastore

import "time"

// MeasurementPoint represents a telemetered measurement point in the network.
// Points are created and edited by the registration application; the engine
// treats them as read-only.
type MeasurementPoint struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"index:idx_points_name"`
	MeterKind     string `gorm:"type:varchar(20);index:idx_points_kind"` // macro, pitometric, pressure, reservoir_level, hydrometer
	TelemetryTag  string `gorm:"index:idx_points_tag"`                   // empty when the point has no integrated telemetry
	Active        bool   `gorm:"index:idx_points_active"`
	ActivatedAt   time.Time
	DeactivatedAt *time.Time
}

// TopologyNode represents one node of the hydraulic topology tree.
// ParentID is nil for roots. Nodes are soft-deleted via Active.
type TopologyNode struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string
	ParentID *uint  `gorm:"index:idx_nodes_parent"`
	Level    string `gorm:"type:varchar(30)"` // system, plant, sector, point
	PointID  *uint  `gorm:"index:idx_nodes_point"`
	Active   bool   `gorm:"index:idx_nodes_active"`
	Position int    // ordering index within the sibling group

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FlowConnection is a directed hydraulic edge: water flows origin -> dest.
type FlowConnection struct {
	ID           uint `gorm:"primaryKey"`
	OriginNodeID uint `gorm:"index:idx_flow_origin;uniqueIndex:idx_flow_pair"`
	DestNodeID   uint `gorm:"index:idx_flow_dest;uniqueIndex:idx_flow_pair"`
	CreatedAt    time.Time
}

// DerivedRelation is the flattened principal/auxiliary tag pair consumed by
// ML training and classification. Regenerated by the relation deriver,
// never hand-edited.
type DerivedRelation struct {
	ID           uint   `gorm:"primaryKey"`
	PrincipalTag string `gorm:"uniqueIndex:idx_relation_pair;index:idx_relation_principal"`
	AuxiliaryTag string `gorm:"uniqueIndex:idx_relation_pair"`
	CreatedAt    time.Time
}

// TelemetryReading is one raw sample from the telemetry store. Discarded
// readings are treated as absent by the engine, never as zero.
type TelemetryReading struct {
	ID          uint   `gorm:"primaryKey"`
	PointID     uint   `gorm:"index:idx_readings_point_date"`
	Date        string `gorm:"index:idx_readings_point_date;type:varchar(10)"` // YYYY-MM-DD
	Hour        int
	Value       float64
	Discarded   bool
	CollectedAt time.Time
}

// Pendency status values.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusAdjusted = "adjusted"
	StatusIgnored  = "ignored"
)

// TreatmentPendency is one operator-reviewable candidate correction for an
// anomalous hour. The natural key (point, date, anomaly type, hour) makes the
// batch upsert idempotent. Rows are never deleted; status transitions are the
// audit trail.
type TreatmentPendency struct {
	ID             uint   `gorm:"primaryKey"`
	PointID        uint   `gorm:"uniqueIndex:idx_pendency_key;index:idx_pendency_point"`
	Date           string `gorm:"uniqueIndex:idx_pendency_key;index:idx_pendency_date;type:varchar(10)"`
	AnomalyType    string `gorm:"uniqueIndex:idx_pendency_key;type:varchar(20)"` // zeroed, flatline, spike, out_of_range, gap
	Hour           int    `gorm:"uniqueIndex:idx_pendency_key"`
	Classification string `gorm:"type:varchar(20);index:idx_pendency_class"` // technical, operational
	Status         string `gorm:"type:varchar(20);index:idx_pendency_status"`
	Confidence     float64
	SuggestedValue float64
	AdjustedValue  *float64
	Method         string `gorm:"type:varchar(30)"` // estimation method behind the suggestion
	Justification  string `gorm:"type:text"`
	GeneratedAt    time.Time
	ReviewedAt     *time.Time
}

// BatchRun records one execution of the detection batch for a reference date.
type BatchRun struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"uniqueIndex;type:varchar(36)"`
	ReferenceDate string `gorm:"index:idx_runs_date;type:varchar(10)"`
	Status        string `gorm:"type:varchar(20)"` // scheduled, running, completed, failed
	Processed     int
	AnomaliesFound int
	ErrorCount    int
	StartedAt     time.Time
	FinishedAt    *time.Time
}

// PendencyFilters narrows pendency searches from the operator API.
type PendencyFilters struct {
	Date           string
	Status         string
	Classification string
	AnomalyType    string
	MeterKind      string
	MinConfidence  float64
	Limit          int
	Offset         int
}

// PendencySummary aggregates the pendencies of one reference date.
type PendencySummary struct {
	Date             string         `json:"date"`
	Total            int64          `json:"total"`
	Pending          int64          `json:"pending"`
	Approved         int64          `json:"approved"`
	Adjusted         int64          `json:"adjusted"`
	Ignored          int64          `json:"ignored"`
	ByClassification map[string]int64 `json:"byClassification"`
	ByAnomalyType    map[string]int64 `json:"byAnomalyType"`
	AverageConfidence float64       `json:"averageConfidence"`
	DistinctPoints   int64          `json:"distinctPoints"`
}
