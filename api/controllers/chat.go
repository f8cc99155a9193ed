package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/jubileehq/jubilee-backend/api/responses"
	"github.com/jubileehq/jubilee-backend/api/validators"
	"github.com/jubileehq/jubilee-backend/internal/chat"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
)

const sseHeartbeatInterval = 25 * time.Second

type chatSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) (*redislib.PubSub, error)
}

// PostOrderMessage appends a message to an order thread.
func PostOrderMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := urlUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body chat.PostMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.PostOrderMessage(r.Context(), chat.Actor(actor), orderID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

// ListOrderMessages pages through an order thread, newest first.
func ListOrderMessages(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := urlUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListOrderMessages(r.Context(), chat.Actor(actor), orderID, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// MarkOrderMessagesRead clears the counterpart's unread marks on the thread.
func MarkOrderMessagesRead(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := urlUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkOrderRead(r.Context(), chat.Actor(actor), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}

// OrderUnreadCount reports how many counterpart messages remain unread.
func OrderUnreadCount(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := urlUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.OrderUnreadCount(r.Context(), chat.Actor(actor), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread": count})
	}
}

// StreamOrderMessages serves the order thread as server-sent events. Missed
// messages are replayed from the Last-Event-ID header before the live tail.
func StreamOrderMessages(svc chat.Service, sub chatSubscriber, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := urlUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		backfill, err := svc.BackfillOrderMessages(r.Context(), chat.Actor(actor), orderID, r.Header.Get("Last-Event-ID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		streamMessages(w, r, sub, svc.OrderChannel(orderID), backfill, logg)
	}
}

// PostSupportMessage appends a message to the customer's direct thread.
func PostSupportMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := supportThreadUser(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body chat.PostMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.PostSupportMessage(r.Context(), chat.Actor(actor), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

// ListSupportMessages pages through a direct thread.
func ListSupportMessages(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := supportThreadUser(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListSupportMessages(r.Context(), chat.Actor(actor), userID, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// MarkSupportMessagesRead clears unread marks on a direct thread.
func MarkSupportMessagesRead(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := supportThreadUser(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkSupportRead(r.Context(), chat.Actor(actor), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}

// SupportUnreadCount reports unread counterpart messages on a direct thread.
func SupportUnreadCount(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := supportThreadUser(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.SupportUnreadCount(r.Context(), chat.Actor(actor), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread": count})
	}
}

// StreamSupportMessages serves a direct thread as server-sent events.
func StreamSupportMessages(svc chat.Service, sub chatSubscriber, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := supportThreadUser(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		backfill, err := svc.BackfillSupportMessages(r.Context(), chat.Actor(actor), userID, r.Header.Get("Last-Event-ID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		streamMessages(w, r, sub, svc.SupportChannel(userID), backfill, logg)
	}
}

// supportThreadUser resolves which direct thread the request targets:
// customers always use their own, staff name one via the userId param.
func supportThreadUser(r *http.Request, actor requestActor) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "userId"))
	if raw == "" {
		return actor.ID, nil
	}
	if !actor.Role.IsStaff() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot address another user's thread")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid userId")
	}
	return id, nil
}

func streamMessages(w http.ResponseWriter, r *http.Request, sub chatSubscriber, channel string, backfill []chat.Message, logg *logger.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
		return
	}
	if sub == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pubsub unavailable"))
		return
	}

	pubsub, err := sub.Subscribe(r.Context(), channel)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe chat channel"))
		return
	}
	defer func() { _ = pubsub.Close() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, msg := range backfill {
		writeEvent(w, msg.ID.String(), msg)
	}
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	live := pubsub.Channel()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case raw, open := <-live:
			if !open {
				return
			}
			var msg chat.Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "dropping malformed chat payload")
				}
				continue
			}
			writeEvent(w, msg.ID.String(), msg)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, id string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\ndata: %s\n\n", id, data)
}
