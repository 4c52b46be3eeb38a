// Package sqlite stores cultivation state in a SQLite database through gorm.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/cultivation"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	sqlitedriver "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// SchemaVersion is written on every row. Rows with a newer version are
// refused rather than misread.
const SchemaVersion = 1

// stateRow is one session's cultivation record. The detection history is
// stored as a JSON array, most recent first.
type stateRow struct {
	SessionID         string `gorm:"primaryKey"`
	SchemaVersion     int    `gorm:"not null"`
	Revision          int64  `gorm:"not null"`
	Active            bool
	CurrentCrop       string
	CurrentPhaseIndex int
	StartDate         time.Time
	LastUpdated       time.Time
	DiseaseHistory    string `gorm:"type:text"`
}

func (stateRow) TableName() string { return "cultivation_states" }

// Repository implements cultivation.Repository on SQLite.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and migrates the
// schema. The parent directory is created for file paths.
func Open(path string, logger *slog.Logger) (*Repository, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlitedriver.Open(path), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&stateRow{}); err != nil {
		return nil, fmt.Errorf("migrate cultivation state: %w", err)
	}
	logger.Info("cultivation state store opened", "path", path, "schema_version", SchemaVersion)
	return &Repository{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection. It backs the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Get(ctx context.Context, sessionID string) (cultivation.State, error) {
	var row stateRow
	err := r.db.WithContext(ctx).First(&row, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cultivation.State{SessionID: sessionID}, nil
	}
	if err != nil {
		return cultivation.State{}, fmt.Errorf("query cultivation state: %w", err)
	}
	return fromRow(row)
}

// Put writes s if the stored revision still equals s.Revision. A zero
// revision inserts; a conflicting insert or a lost update reports
// domain.ErrStaleState.
func (r *Repository) Put(ctx context.Context, s cultivation.State) (cultivation.State, error) {
	row, err := toRow(s)
	if err != nil {
		return cultivation.State{}, err
	}
	row.Revision = s.Revision + 1

	db := r.db.WithContext(ctx)
	var res *gorm.DB
	if s.Revision == 0 {
		res = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	} else {
		res = db.Model(&stateRow{}).
			Where("session_id = ? AND revision = ?", s.SessionID, s.Revision).
			Updates(map[string]any{
				"schema_version":      row.SchemaVersion,
				"revision":            row.Revision,
				"active":              row.Active,
				"current_crop":        row.CurrentCrop,
				"current_phase_index": row.CurrentPhaseIndex,
				"start_date":          row.StartDate,
				"last_updated":        row.LastUpdated,
				"disease_history":     row.DiseaseHistory,
			})
	}
	if res.Error != nil {
		return cultivation.State{}, fmt.Errorf("write cultivation state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		r.logger.Warn("stale cultivation state write", "session", s.SessionID, "revision", s.Revision)
		return cultivation.State{}, domain.ErrStaleState
	}

	saved := s.Clone()
	saved.Revision = row.Revision
	return saved, nil
}

func toRow(s cultivation.State) (stateRow, error) {
	history := s.DiseaseHistory
	if history == nil {
		history = []cultivation.DetectionEntry{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return stateRow{}, fmt.Errorf("encode disease history: %w", err)
	}
	return stateRow{
		SessionID:         s.SessionID,
		SchemaVersion:     SchemaVersion,
		Active:            s.Active,
		CurrentCrop:       s.CurrentCrop,
		CurrentPhaseIndex: s.CurrentPhaseIndex,
		StartDate:         s.StartDate,
		LastUpdated:       s.LastUpdated,
		DiseaseHistory:    string(data),
	}, nil
}

func fromRow(row stateRow) (cultivation.State, error) {
	if row.SchemaVersion > SchemaVersion {
		return cultivation.State{}, fmt.Errorf("session %s: unsupported schema version %d", row.SessionID, row.SchemaVersion)
	}
	s := cultivation.State{
		SessionID:         row.SessionID,
		Active:            row.Active,
		CurrentCrop:       row.CurrentCrop,
		CurrentPhaseIndex: row.CurrentPhaseIndex,
		StartDate:         row.StartDate,
		LastUpdated:       row.LastUpdated,
		Revision:          row.Revision,
	}
	if row.DiseaseHistory != "" {
		if err := json.Unmarshal([]byte(row.DiseaseHistory), &s.DiseaseHistory); err != nil {
			return cultivation.State{}, fmt.Errorf("decode disease history: %w", err)
		}
	}
	return s, nil
}
