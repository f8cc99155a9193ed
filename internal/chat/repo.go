package chat

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	"github.com/jubileehq/jubilee-backend/pkg/pagination"
)

// Repository persists the two append-only message streams: order threads and
// account-level support threads. The two tables are structurally identical,
// so the query shapes mirror each other.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrderMessage(ctx context.Context, msg *models.OrderMessage) error
	ListOrderMessages(ctx context.Context, orderID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.OrderMessage, *pagination.Cursor, error)
	ListOrderMessagesAfter(ctx context.Context, orderID, afterID uuid.UUID) ([]models.OrderMessage, error)
	MarkOrderMessagesRead(ctx context.Context, orderID uuid.UUID, senderRole enums.SenderRole) (int64, error)
	CountUnreadOrderMessages(ctx context.Context, orderID uuid.UUID, senderRole enums.SenderRole) (int64, error)

	CreateSupportMessage(ctx context.Context, msg *models.ChatMessage) error
	ListSupportMessages(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.ChatMessage, *pagination.Cursor, error)
	ListSupportMessagesAfter(ctx context.Context, userID, afterID uuid.UUID) ([]models.ChatMessage, error)
	MarkSupportMessagesRead(ctx context.Context, userID uuid.UUID, senderRole enums.SenderRole) (int64, error)
	CountUnreadSupportMessages(ctx context.Context, userID uuid.UUID, senderRole enums.SenderRole) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository wires the chat repository over the provided connection.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateOrderMessage(ctx context.Context, msg *models.OrderMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *repositoryImpl) ListOrderMessages(ctx context.Context, orderID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.OrderMessage, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Where("order_id = ?", orderID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.OrderMessage
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	normalized := pagination.NormalizeLimit(limit)
	if len(rows) <= normalized {
		return rows, nil, nil
	}
	rows = rows[:normalized]
	last := rows[len(rows)-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

// ListOrderMessagesAfter returns rows newer than the given message in
// ascending order. Used to backfill an SSE stream from Last-Event-ID.
func (r *repositoryImpl) ListOrderMessagesAfter(ctx context.Context, orderID, afterID uuid.UUID) ([]models.OrderMessage, error) {
	var anchor models.OrderMessage
	if err := r.db.WithContext(ctx).First(&anchor, "id = ? AND order_id = ?", afterID, orderID).Error; err != nil {
		return nil, err
	}

	var rows []models.OrderMessage
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Where("(created_at, id) > (?, ?)", anchor.CreatedAt, anchor.ID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) MarkOrderMessagesRead(ctx context.Context, orderID uuid.UUID, senderRole enums.SenderRole) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Where("order_id = ? AND sender_role = ? AND read = ?", orderID, senderRole, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CountUnreadOrderMessages(ctx context.Context, orderID uuid.UUID, senderRole enums.SenderRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Where("order_id = ? AND sender_role = ? AND read = ?", orderID, senderRole, false).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CreateSupportMessage(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *repositoryImpl) ListSupportMessages(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.ChatMessage, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.ChatMessage
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	normalized := pagination.NormalizeLimit(limit)
	if len(rows) <= normalized {
		return rows, nil, nil
	}
	rows = rows[:normalized]
	last := rows[len(rows)-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

func (r *repositoryImpl) ListSupportMessagesAfter(ctx context.Context, userID, afterID uuid.UUID) ([]models.ChatMessage, error) {
	var anchor models.ChatMessage
	if err := r.db.WithContext(ctx).First(&anchor, "id = ? AND user_id = ?", afterID, userID).Error; err != nil {
		return nil, err
	}

	var rows []models.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("(created_at, id) > (?, ?)", anchor.CreatedAt, anchor.ID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) MarkSupportMessagesRead(ctx context.Context, userID uuid.UUID, senderRole enums.SenderRole) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("user_id = ? AND sender_role = ? AND read = ?", userID, senderRole, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CountUnreadSupportMessages(ctx context.Context, userID uuid.UUID, senderRole enums.SenderRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("user_id = ? AND sender_role = ? AND read = ?", userID, senderRole, false).
		Count(&count).Error
	return count, err
}
