// Package outbox co-commits publication records with the state changes that
// produce them. Rows are written inside the caller's transaction and are
// never modified by domain code after insert; a relay drains them later.
package outbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidTenant  = errors.New("outbox_invalid_tenant")
	ErrInvalidType    = errors.New("outbox_invalid_event_type")
	ErrInvalidPayload = errors.New("outbox_invalid_payload")
)

// Message is one pending publication record.
type Message struct {
	ID          snowflake.ID      `gorm:"primaryKey;column:message_id"`
	TenantID    string            `gorm:"type:text;not null;index"`
	EventType   string            `gorm:"type:text;not null"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	OccurredAt  time.Time         `gorm:"not null"`
	ProcessedAt *time.Time        `gorm:""`
	RetryCount  int               `gorm:"not null;default:0"`
}

// TableName sets the database table name.
func (Message) TableName() string { return "outbox_messages" }

// Event is what domain services hand to the outbox.
type Event struct {
	TenantID string
	Type     string
	Payload  map[string]any
}

// Outbox writes publication records. Snowflake ids keep messages
// time-ordered for the relay.
type Outbox struct {
	log   *zap.Logger
	genID *snowflake.Node
}

// New builds an Outbox.
func New(log *zap.Logger, genID *snowflake.Node) *Outbox {
	return &Outbox{log: log.Named("outbox"), genID: genID}
}

// PublishTx inserts the event row inside the caller's transaction so the
// record commits or rolls back with the state change it announces.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, evt Event) error {
	if strings.TrimSpace(evt.TenantID) == "" {
		return ErrInvalidTenant
	}
	if strings.TrimSpace(evt.Type) == "" {
		return ErrInvalidType
	}
	if len(evt.Payload) == 0 {
		return ErrInvalidPayload
	}

	payload := datatypes.JSONMap(evt.Payload)
	payload["tenant_id"] = evt.TenantID

	msg := Message{
		ID:         o.genID.Generate(),
		TenantID:   evt.TenantID,
		EventType:  evt.Type,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&msg).Error
}
