package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/dormshop/go-order-api/internal/domains/notifications/ports"
	ordersdomain "github.com/dormshop/go-order-api/internal/domains/orders/domain"
)

var _ ports.OutboxStore = (*Store)(nil)

// Store persists notification events in PostgreSQL using GORM. When
// constructed over a transaction handle its appends join that
// transaction, which is how events commit atomically with the order
// mutation that produced them.
type Store struct {
	db *gorm.DB
}

// NewStore wires an outbox over the given DB or transaction handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// outboxRecord maps a stored notification to a relational row.
type outboxRecord struct {
	ID           int64          `gorm:"primaryKey;autoIncrement;column:id"`
	EventID      string         `gorm:"column:event_id;type:varchar(36);uniqueIndex"`
	Name         string         `gorm:"column:name;type:varchar(64);index"`
	Payload      []byte         `gorm:"column:payload;type:jsonb"`
	RecipientIDs pq.StringArray `gorm:"column:recipient_ids;type:text[]"`
	CreatedAt    time.Time      `gorm:"column:created_at;index"`
	SentAt       *time.Time     `gorm:"column:sent_at;index"`
}

func (outboxRecord) TableName() string { return "notification_outbox" }

// Append stores one row per event.
func (s *Store) Append(ctx context.Context, events ...ordersdomain.NotificationEvent) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	for _, event := range events {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		record := outboxRecord{
			EventID:      uuid.NewString(),
			Name:         event.Name,
			Payload:      payload,
			RecipientIDs: pq.StringArray(event.RecipientIDs),
			CreatedAt:    event.OccurredAt,
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

// FetchPending returns unsent records in insertion order.
func (s *Store) FetchPending(ctx context.Context, limit int) ([]ports.Record, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var records []outboxRecord
	query := s.db.WithContext(ctx).Where("sent_at IS NULL").Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	result := make([]ports.Record, 0, len(records))
	for _, record := range records {
		result = append(result, ports.Record{
			ID:           record.ID,
			EventID:      record.EventID,
			Name:         record.Name,
			Payload:      json.RawMessage(record.Payload),
			RecipientIDs: []string(record.RecipientIDs),
			CreatedAt:    record.CreatedAt,
			SentAt:       record.SentAt,
		})
	}
	return result, nil
}

// MarkSent stamps a record as delivered.
func (s *Store) MarkSent(ctx context.Context, id int64) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&outboxRecord{}).
		Where("id = ?", id).
		Update("sent_at", gorm.Expr("NOW()")).Error
}

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres outbox store not configured")
	}
	return nil
}
