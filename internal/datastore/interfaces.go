// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"time"

	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/series"
	"github.com/aquatel/hydronet-go/internal/topology"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the
// operations the engine needs.
type Interface interface {
	Open() error
	Close() error

	// Measurement points (read-only to the engine)
	GetActivePoints() ([]MeasurementPoint, error)
	GetPoint(id uint) (MeasurementPoint, error)
	GetPointByTag(tag string) (MeasurementPoint, error)

	// Telemetry readings (read-only to the engine)
	GetDayReadings(pointID uint, date string) (series.HourlySeries, int, error)
	GetHistory(pointID uint, date string, weeks int) (series.History, error)

	// Topology
	TopologySnapshot() (*topology.Graph, error)
	GetNode(id uint) (TopologyNode, error)
	ListNodes() ([]TopologyNode, error)
	AttachNode(node *TopologyNode) error
	MoveNode(nodeID uint, newParentID *uint) error
	SoftDeleteNode(nodeID uint, cascade bool) (int, error)
	RestoreNode(nodeID uint, includeDescendants bool) (int, error)
	HardDeleteCascade(nodeID uint) (int, error)
	Descendants(nodeID uint) ([]uint, error)
	IsDescendant(candidateID, ofID uint) (bool, error)
	GetFlowConnections() ([]FlowConnection, error)

	// Derived ML relations
	GetDerivedRelations() ([]DerivedRelation, error)
	ApplyRelationSync(toAdd, toRemove []DerivedRelation) error

	// Treatment pendencies
	UpsertPendency(p *TreatmentPendency) error
	GetPendency(id uint) (TreatmentPendency, error)
	SearchPendencies(filters *PendencyFilters) ([]TreatmentPendency, int64, error)
	ReviewPendency(id uint, status string, adjustedValue *float64, justification string) error
	Summary(date string) (PendencySummary, error)

	// Batch runs
	SaveBatchRun(run *BatchRun) error
	UpdateBatchRun(run *BatchRun) error
	LatestBatchRun(date string) (*BatchRun, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a new datastore instance based on the provided settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// createGormLogger configures the GORM logger: quiet by default, slow queries
// surface as warnings.
func createGormLogger() gormlogger.Interface {
	return gormlogger.Default.LogMode(gormlogger.Warn)
}

// performAutoMigration migrates all engine tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(
		&MeasurementPoint{},
		&TopologyNode{},
		&FlowConnection{},
		&DerivedRelation{},
		&TelemetryReading{},
		&TreatmentPendency{},
		&BatchRun{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}
	if debug {
		fmt.Printf("%s database connection initialized: %s\n", dbType, connectionInfo)
	}
	return nil
}

// GetActivePoints returns the active measurement points that carry an
// integrated telemetry tag; only those participate in a batch run.
func (ds *DataStore) GetActivePoints() ([]MeasurementPoint, error) {
	var points []MeasurementPoint
	if err := ds.DB.Where("active = ? AND telemetry_tag <> ''", true).
		Order("id ASC").
		Find(&points).Error; err != nil {
		return nil, fmt.Errorf("error getting active points: %w", err)
	}
	return points, nil
}

// GetPoint retrieves a measurement point by id.
func (ds *DataStore) GetPoint(id uint) (MeasurementPoint, error) {
	var point MeasurementPoint
	if err := ds.DB.First(&point, id).Error; err != nil {
		return MeasurementPoint{}, fmt.Errorf("getting point %d: %w", id, err)
	}
	return point, nil
}

// GetPointByTag retrieves a measurement point by its telemetry tag.
func (ds *DataStore) GetPointByTag(tag string) (MeasurementPoint, error) {
	var point MeasurementPoint
	if err := ds.DB.Where("telemetry_tag = ?", tag).First(&point).Error; err != nil {
		return MeasurementPoint{}, fmt.Errorf("getting point with tag %q: %w", tag, err)
	}
	return point, nil
}

// SaveBatchRun persists a new batch run record.
func (ds *DataStore) SaveBatchRun(run *BatchRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := ds.DB.Create(run).Error; err != nil {
		return fmt.Errorf("saving batch run: %w", err)
	}
	return nil
}

// UpdateBatchRun updates the mutable fields of a batch run record.
func (ds *DataStore) UpdateBatchRun(run *BatchRun) error {
	err := ds.DB.Model(&BatchRun{}).
		Where("run_id = ?", run.RunID).
		Updates(map[string]any{
			"status":          run.Status,
			"processed":       run.Processed,
			"anomalies_found": run.AnomaliesFound,
			"error_count":     run.ErrorCount,
			"finished_at":     run.FinishedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("updating batch run %s: %w", run.RunID, err)
	}
	return nil
}

// LatestBatchRun returns the most recent run for a reference date, or nil.
func (ds *DataStore) LatestBatchRun(date string) (*BatchRun, error) {
	var run BatchRun
	err := ds.DB.Where("reference_date = ?", date).
		Order("started_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, fmt.Errorf("getting latest batch run for %s: %w", date, err)
	}
	if run.ID == 0 {
		return nil, nil
	}
	return &run, nil
}
