package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"monkeydao/core/events"
)

// MaxRecent caps the page size of Recent.
const MaxRecent = 500

// EventRow is one committed ledger event.
type EventRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type       string    `gorm:"index;not null"`
	Attributes string    `gorm:"type:text;not null"`
	RecordedAt time.Time `gorm:"index"`
}

// TableName pins the table name across drivers.
func (EventRow) TableName() string { return "ledger_events" }

// Decode returns the attribute map of the row.
func (r EventRow) Decode() (map[string]string, error) {
	attrs := make(map[string]string)
	if strings.TrimSpace(r.Attributes) == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// Open connects to the index database. driver is "sqlite" or "postgres".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("explorer: unsupported driver %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

// Indexer stores committed events for later querying. It implements
// events.Emitter.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewIndexer migrates the schema and returns an indexer writing to db.
func NewIndexer(db *gorm.DB, logger *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, fmt.Errorf("explorer: nil database")
	}
	if err := db.AutoMigrate(&EventRow{}); err != nil {
		return nil, fmt.Errorf("explorer: migrate: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, logger: logger, now: time.Now}, nil
}

// Emit implements events.Emitter. Index failures are logged, never
// propagated, since the ledger has already committed.
func (i *Indexer) Emit(evt events.Event) {
	if i == nil || evt == nil {
		return
	}
	if err := i.Record(context.Background(), evt); err != nil {
		i.logger.Warn("index event failed",
			slog.String("type", evt.EventType()),
			slog.String("error", err.Error()))
	}
}

// Record stores evt.
func (i *Indexer) Record(ctx context.Context, evt events.Event) error {
	attrs := map[string]string{}
	if record, ok := evt.(events.Record); ok && record.Event() != nil && record.Event().Attributes != nil {
		attrs = record.Event().Attributes
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	row := EventRow{
		ID:         uuid.New(),
		Type:       evt.EventType(),
		Attributes: string(encoded),
		RecordedAt: i.now().UTC(),
	}
	return i.db.WithContext(ctx).Create(&row).Error
}

// Recent returns up to limit events, newest first, optionally filtered by
// type.
func (i *Indexer) Recent(ctx context.Context, eventType string, limit int) ([]EventRow, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	query := i.db.WithContext(ctx).Model(&EventRow{})
	if eventType = strings.TrimSpace(eventType); eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	var rows []EventRow
	if err := query.Order("recorded_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
