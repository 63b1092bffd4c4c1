package appcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one cached value. A nil ExpiresAt never expires.
type Entry struct {
	ID        string     `gorm:"primaryKey;type:uuid"`
	Key       string     `gorm:"uniqueIndex;not null"`
	Value     []byte     `gorm:"type:jsonb;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (Entry) TableName() string {
	return "application_cache"
}

// DBConfig holds postgres connection settings
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// Open connects to postgres and migrates the cache table
func Open(cfg DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate application cache: %w", err)
	}
	return db, nil
}

// Store reads and writes cache entries with per-key expiry
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Load returns the value for key if it exists and has not expired
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key, s.now()).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cache key %q: %w", key, err)
	}
	return e.Value, true, nil
}

// Save inserts or replaces the value for key. A ttl of zero stores it without
// expiry.
func (s *Store) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	e := Entry{
		ID:        uuid.NewString(),
		Key:       key,
		Value:     value,
		CreatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		e.ExpiresAt = &expires
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "created_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("failed to save cache key %q: %w", key, err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge application cache: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Purger is anything the janitor can clean
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// PurgeFunc adapts a function to Purger
type PurgeFunc func(ctx context.Context) (int64, error)

func (f PurgeFunc) Purge(ctx context.Context) (int64, error) { return f(ctx) }

// Janitor purges expired entries on a cron schedule
type Janitor struct {
	cron    *cron.Cron
	purgers map[string]Purger
	logger  *slog.Logger
}

// NewJanitor schedules every purger on schedule (standard 5-field cron syntax or
// descriptors such as "@every 10m").
func NewJanitor(schedule string, purgers map[string]Purger, logger *slog.Logger) (*Janitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{cron: cron.New(), purgers: purgers, logger: logger}
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	return j, nil
}

// RunOnce purges every registered cache
func (j *Janitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for name, p := range j.purgers {
		removed, err := p.Purge(ctx)
		if err != nil {
			j.logger.Error("Cache purge failed", "cache", name, "error", err)
			continue
		}
		if removed > 0 {
			j.logger.Info("Purged expired cache entries", "cache", name, "removed", removed)
		}
	}
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running purge to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
