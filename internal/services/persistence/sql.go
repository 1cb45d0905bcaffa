package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
)

// readingRow is the sensor_data table. created_at holds epoch milliseconds.
type readingRow struct {
	ID          string  `gorm:"primaryKey;size:36"`
	Temperature float64 `gorm:"not null"`
	Humidity    float64 `gorm:"not null"`
	Moisture    float64 `gorm:"not null"`
	PH          float64 `gorm:"column:ph;not null"`
	CreatedMs   int64   `gorm:"column:created_at;not null;index:idx_sensor_data_created_at"`
}

func (readingRow) TableName() string { return "sensor_data" }

func (r readingRow) toReading() entities.SensorReading {
	return entities.SensorReading{
		ID: r.ID,
		ReadingFields: entities.ReadingFields{
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
			Moisture:    r.Moisture,
			PH:          r.PH,
		},
		CreatedAt: time.UnixMilli(r.CreatedMs).UTC(),
	}
}

// SQLStore persists readings in a single append-only table through gorm.
type SQLStore struct {
	db    *gorm.DB
	mu    sync.Mutex // keeps created_at order equal to insert order
	stamp *stamper
}

// OpenSQLStore opens (or creates) a SQLite database at dsn.
func OpenSQLStore(dsn string, opts ...Option) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)
	return NewSQLStore(db, opts...)
}

// NewSQLStore migrates the schema on db and seeds the timestamp clock from the
// newest stored reading.
func NewSQLStore(db *gorm.DB, opts ...Option) (*SQLStore, error) {
	if err := db.AutoMigrate(&readingRow{}); err != nil {
		return nil, fmt.Errorf("migrate sensor_data: %w", err)
	}
	s := &SQLStore{db: db, stamp: newStamper(opts...)}

	var maxMs sql.NullInt64
	if err := db.Model(&readingRow{}).Select("MAX(created_at)").Row().Scan(&maxMs); err != nil {
		return nil, fmt.Errorf("read newest reading: %w", err)
	}
	if maxMs.Valid {
		s.stamp.seed(time.UnixMilli(maxMs.Int64))
	}
	return s, nil
}

func (s *SQLStore) Append(ctx context.Context, f entities.ReadingFields) (entities.SensorReading, error) {
	if err := checkFields(f); err != nil {
		return entities.SensorReading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := readingRow{
		ID:          newID(),
		Temperature: f.Temperature,
		Humidity:    f.Humidity,
		Moisture:    f.Moisture,
		PH:          f.PH,
		CreatedMs:   s.stamp.next().UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return entities.SensorReading{}, unavailable("sql append", err)
	}
	return row.toReading(), nil
}

func (s *SQLStore) FindLatest(ctx context.Context) (*entities.SensorReading, error) {
	var rows []readingRow
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(1).Find(&rows).Error; err != nil {
		return nil, unavailable("sql latest", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0].toReading()
	return &r, nil
}

func (s *SQLStore) FindSince(ctx context.Context, since time.Time) ([]entities.SensorReading, error) {
	var rows []readingRow
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", ceilMilli(since)).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("sql since", err)
	}
	out := make([]entities.SensorReading, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toReading())
	}
	return out, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable("sql ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable("sql ping", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
