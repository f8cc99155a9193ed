package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/pagination"
)

// Actor is the authenticated party interacting with a thread.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// SenderRole maps the account role onto the two chat sides.
func (a Actor) SenderRole() enums.SenderRole {
	if a.Role.IsStaff() {
		return enums.SenderRoleAdmin
	}
	return enums.SenderRoleCustomer
}

// PostMessageRequest carries a new message; text, attachment, or both.
type PostMessageRequest struct {
	Body          *string `json:"body" validate:"omitempty,max=4000"`
	AttachmentURL *string `json:"attachmentURL" validate:"omitempty,url"`
}

// Message is the wire shape for both thread kinds; it is also the payload
// published to the Redis channel, so the SSE stream and the list endpoint
// agree on field names.
type Message struct {
	ID            uuid.UUID        `json:"id"`
	ThreadID      uuid.UUID        `json:"threadId"`
	SenderID      uuid.UUID        `json:"senderId"`
	SenderRole    enums.SenderRole `json:"senderRole"`
	Body          *string          `json:"body,omitempty"`
	AttachmentURL *string          `json:"attachmentUrl,omitempty"`
	Read          bool             `json:"read"`
	CreatedAt     string           `json:"createdAt"`
}

// MessageList is one page of thread history plus the next cursor.
type MessageList struct {
	Items  []Message `json:"items"`
	Cursor string    `json:"cursor"`
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	ChatChannel(orderID string) string
	SupportChatChannel(userID string) string
}

// Service owns posting, history, read state, and realtime fan-out for both
// thread kinds.
type Service interface {
	PostOrderMessage(ctx context.Context, actor Actor, orderID uuid.UUID, req PostMessageRequest) (*Message, error)
	ListOrderMessages(ctx context.Context, actor Actor, orderID uuid.UUID, limit int, cursor string) (*MessageList, error)
	BackfillOrderMessages(ctx context.Context, actor Actor, orderID uuid.UUID, lastEventID string) ([]Message, error)
	MarkOrderRead(ctx context.Context, actor Actor, orderID uuid.UUID) (int64, error)
	OrderUnreadCount(ctx context.Context, actor Actor, orderID uuid.UUID) (int64, error)
	OrderChannel(orderID uuid.UUID) string

	PostSupportMessage(ctx context.Context, actor Actor, userID uuid.UUID, req PostMessageRequest) (*Message, error)
	ListSupportMessages(ctx context.Context, actor Actor, userID uuid.UUID, limit int, cursor string) (*MessageList, error)
	BackfillSupportMessages(ctx context.Context, actor Actor, userID uuid.UUID, lastEventID string) ([]Message, error)
	MarkSupportRead(ctx context.Context, actor Actor, userID uuid.UUID) (int64, error)
	SupportUnreadCount(ctx context.Context, actor Actor, userID uuid.UUID) (int64, error)
	SupportChannel(userID uuid.UUID) string
}

// ServiceParams bundles the chat service dependencies.
type ServiceParams struct {
	Repo      Repository
	Orders    orderLoader
	Publisher publisher
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	orders    orderLoader
	publisher publisher
	logg      *logger.Logger
}

// NewService validates dependencies and builds the chat service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "chat repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders lookup required")
	}
	return &service{
		repo:      params.Repo,
		orders:    params.Orders,
		publisher: params.Publisher,
		logg:      params.Logger,
	}, nil
}

func (s *service) PostOrderMessage(ctx context.Context, actor Actor, orderID uuid.UUID, req PostMessageRequest) (*Message, error) {
	body, attachment, err := normalizeMessage(req)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}

	row := &models.OrderMessage{
		ID:            uuid.New(),
		OrderID:       orderID,
		SenderID:      actor.ID,
		SenderRole:    actor.SenderRole(),
		Body:          body,
		AttachmentURL: attachment,
	}
	if err := s.repo.CreateOrderMessage(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order message")
	}

	msg := fromOrderMessage(*row)
	s.publish(ctx, s.OrderChannel(orderID), msg)
	return &msg, nil
}

func (s *service) ListOrderMessages(ctx context.Context, actor Actor, orderID uuid.UUID, limit int, cursor string) (*MessageList, error) {
	if err := s.authorizeOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	parsed, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListOrderMessages(ctx, orderID, limit, parsed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order messages")
	}
	items := make([]Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromOrderMessage(row))
	}
	list := &MessageList{Items: items}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// BackfillOrderMessages replays rows newer than the client's Last-Event-ID
// so an SSE reconnect sees no gap. An unknown anchor id falls back to an
// empty backfill; the live channel picks up from there.
func (s *service) BackfillOrderMessages(ctx context.Context, actor Actor, orderID uuid.UUID, lastEventID string) ([]Message, error) {
	if err := s.authorizeOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	afterID, err := uuid.Parse(strings.TrimSpace(lastEventID))
	if err != nil {
		return nil, nil
	}
	rows, err := s.repo.ListOrderMessagesAfter(ctx, orderID, afterID)
	if err != nil {
		return nil, nil
	}
	items := make([]Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromOrderMessage(row))
	}
	return items, nil
}

// MarkOrderRead marks the counterpart's rows as read: opening the panel as a
// customer clears admin messages and vice versa.
func (s *service) MarkOrderRead(ctx context.Context, actor Actor, orderID uuid.UUID) (int64, error) {
	if err := s.authorizeOrder(ctx, actor, orderID); err != nil {
		return 0, err
	}
	count, err := s.repo.MarkOrderMessagesRead(ctx, orderID, counterpart(actor.SenderRole()))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
	}
	return count, nil
}

func (s *service) OrderUnreadCount(ctx context.Context, actor Actor, orderID uuid.UUID) (int64, error) {
	if err := s.authorizeOrder(ctx, actor, orderID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnreadOrderMessages(ctx, orderID, counterpart(actor.SenderRole()))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	return count, nil
}

func (s *service) OrderChannel(orderID uuid.UUID) string {
	if s.publisher == nil {
		return ""
	}
	return s.publisher.ChatChannel(orderID.String())
}

func (s *service) PostSupportMessage(ctx context.Context, actor Actor, userID uuid.UUID, req PostMessageRequest) (*Message, error) {
	body, attachment, err := normalizeMessage(req)
	if err != nil {
		return nil, err
	}
	if err := authorizeSupport(actor, userID); err != nil {
		return nil, err
	}

	row := &models.ChatMessage{
		ID:            uuid.New(),
		UserID:        userID,
		SenderID:      actor.ID,
		SenderRole:    actor.SenderRole(),
		Body:          body,
		AttachmentURL: attachment,
	}
	if err := s.repo.CreateSupportMessage(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create support message")
	}

	msg := fromSupportMessage(*row)
	s.publish(ctx, s.SupportChannel(userID), msg)
	return &msg, nil
}

func (s *service) ListSupportMessages(ctx context.Context, actor Actor, userID uuid.UUID, limit int, cursor string) (*MessageList, error) {
	if err := authorizeSupport(actor, userID); err != nil {
		return nil, err
	}
	parsed, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListSupportMessages(ctx, userID, limit, parsed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list support messages")
	}
	items := make([]Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromSupportMessage(row))
	}
	list := &MessageList{Items: items}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) BackfillSupportMessages(ctx context.Context, actor Actor, userID uuid.UUID, lastEventID string) ([]Message, error) {
	if err := authorizeSupport(actor, userID); err != nil {
		return nil, err
	}
	afterID, err := uuid.Parse(strings.TrimSpace(lastEventID))
	if err != nil {
		return nil, nil
	}
	rows, err := s.repo.ListSupportMessagesAfter(ctx, userID, afterID)
	if err != nil {
		return nil, nil
	}
	items := make([]Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromSupportMessage(row))
	}
	return items, nil
}

func (s *service) MarkSupportRead(ctx context.Context, actor Actor, userID uuid.UUID) (int64, error) {
	if err := authorizeSupport(actor, userID); err != nil {
		return 0, err
	}
	count, err := s.repo.MarkSupportMessagesRead(ctx, userID, counterpart(actor.SenderRole()))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
	}
	return count, nil
}

func (s *service) SupportUnreadCount(ctx context.Context, actor Actor, userID uuid.UUID) (int64, error) {
	if err := authorizeSupport(actor, userID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnreadSupportMessages(ctx, userID, counterpart(actor.SenderRole()))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	return count, nil
}

func (s *service) SupportChannel(userID uuid.UUID) string {
	if s.publisher == nil {
		return ""
	}
	return s.publisher.SupportChatChannel(userID.String())
}

// authorizeOrder hides foreign orders from customers; staff reach any thread.
func (s *service) authorizeOrder(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !actor.Role.IsStaff() && order.CustomerID != actor.ID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func authorizeSupport(actor Actor, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !actor.Role.IsStaff() && actor.ID != userID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "thread not found")
	}
	return nil
}

// publish is best-effort: a Redis outage degrades realtime delivery, never
// message persistence.
func (s *service) publish(ctx context.Context, channel string, msg Message) {
	if s.publisher == nil || channel == "" {
		return
	}
	if err := s.publisher.Publish(ctx, channel, msg); err != nil && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "channel", channel)
		s.logg.Warn(logCtx, "chat publish failed")
	}
}

func normalizeMessage(req PostMessageRequest) (*string, *string, error) {
	var body *string
	if req.Body != nil {
		trimmed := strings.TrimSpace(*req.Body)
		if trimmed != "" {
			body = &trimmed
		}
	}
	attachment := req.AttachmentURL
	if attachment != nil && strings.TrimSpace(*attachment) == "" {
		attachment = nil
	}
	if body == nil && attachment == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "message needs text or an attachment")
	}
	return body, attachment, nil
}

func counterpart(role enums.SenderRole) enums.SenderRole {
	if role == enums.SenderRoleCustomer {
		return enums.SenderRoleAdmin
	}
	return enums.SenderRoleCustomer
}

func fromOrderMessage(row models.OrderMessage) Message {
	return Message{
		ID:            row.ID,
		ThreadID:      row.OrderID,
		SenderID:      row.SenderID,
		SenderRole:    row.SenderRole,
		Body:          row.Body,
		AttachmentURL: row.AttachmentURL,
		Read:          row.Read,
		CreatedAt:     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromSupportMessage(row models.ChatMessage) Message {
	return Message{
		ID:            row.ID,
		ThreadID:      row.UserID,
		SenderID:      row.SenderID,
		SenderRole:    row.SenderRole,
		Body:          row.Body,
		AttachmentURL: row.AttachmentURL,
		Read:          row.Read,
		CreatedAt:     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
