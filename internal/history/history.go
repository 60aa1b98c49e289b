// Package history persists terminal-state task records for operator
// review. This is a supplemented, ambient feature (see SPEC_FULL.md §E):
// it never reconstructs segment plans, so it carries none of the
// restart-resume temptation the spec explicitly rules out.
package history

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"segfetch/internal/model"
)

// Record is one finished task's durable footprint, trimmed from the
// teacher's DownloadTask model down to fields that make sense once a run
// has already reached a terminal state.
type Record struct {
	ID         string `gorm:"primaryKey"`
	FileName   string
	TotalSize  int64
	Status     string `gorm:"index"`
	FinishedAt time.Time
	CreatedAt  time.Time
}

func (Record) TableName() string { return "task_history" }

// Store wraps a gorm-backed sqlite database, grounded on the teacher's
// internal/storage (models.go's struct style, db_test.go's gorm.Open +
// glebarez/sqlite + AutoMigrate wiring — the real gorm path, not the
// unreachable badger-backed generation also present in the teacher).
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) a sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Record saves (or overwrites) one terminal-state task record. Save alone
// would only ever Update by primary key, silently doing nothing for an ID
// seen for the first time, so this upserts explicitly on conflict.
func (s *Store) Record(view model.TaskView) error {
	rec := Record{
		ID:         view.ID,
		FileName:   view.FileName,
		TotalSize:  view.FileSize,
		Status:     string(view.Status),
		FinishedAt: time.Now(),
		CreatedAt:  view.DateAdded,
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

// List returns every persisted record, most recently finished first.
func (s *Store) List() ([]Record, error) {
	var recs []Record
	err := s.db.Order("finished_at desc").Find(&recs).Error
	return recs, err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
