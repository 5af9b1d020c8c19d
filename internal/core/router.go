package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/apaluca/PrivateChat/internal/store"
)

// DeliveryReport summarizes one fanout.
type DeliveryReport struct {
	MessageID  int64
	Recipients int
	Dropped    int
}

// Router persists a message and delivers it to the live member set of its
// channel. Persistence happens-before fanout: no copy is ever sent without
// a durable id, and a persistence failure aborts with no partial broadcast.
// Membership decisions stay out of this path; for group and direct channels
// the caller supplies the durable member ids it already resolved.
type Router struct {
	store      store.MessageStore
	registry   *Registry
	maxContent int
	log        *zerolog.Logger
}

// NewRouter constructs a router delivering through the given registry.
func NewRouter(st store.MessageStore, registry *Registry, maxContent int, logger *zerolog.Logger) *Router {
	return &Router{
		store:      st,
		registry:   registry,
		maxContent: maxContent,
		log:        logger,
	}
}

// Deliver persists content on the channel and broadcasts the stored message
// to every currently connected recipient, the sender's own connections
// included. memberIDs is required for group and direct channels and ignored
// otherwise. Delivery is best-effort per recipient: a connection that
// vanished or stopped draining between snapshot and send is simply skipped,
// never retried, and never blocks the rest of the set.
func (rt *Router) Deliver(ctx context.Context, sender Identity, ref ChannelRef, content string, memberIDs []int64) (Message, DeliveryReport, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, DeliveryReport{}, coreError(ErrCodeValidation, "message content is required")
	}
	if rt.maxContent > 0 && len(content) > rt.maxContent {
		return Message{}, DeliveryReport{}, coreError(ErrCodeValidation, "message content too long")
	}

	createdAt := time.Now().UTC()

	var (
		id  int64
		err error
	)
	switch ref.Kind {
	case ChannelGlobal:
		id, err = rt.store.CreateMessage(ctx, sender.UserID, content, createdAt)
	case ChannelRoom:
		id, err = rt.store.CreateRoomMessage(ctx, ref.ID, sender.UserID, content, createdAt)
	case ChannelDirect:
		id, err = rt.store.CreateDirectMessage(ctx, ref.ID, sender.UserID, content, createdAt)
	case ChannelGroup:
		id, err = rt.store.CreateGroupMessage(ctx, ref.ID, sender.UserID, content, createdAt)
	default:
		return Message{}, DeliveryReport{}, coreError(ErrCodeBadRequest, "unknown channel")
	}
	if err != nil {
		rt.log.Error().Err(err).Stringer("channel", ref).Msg("persist message failed, aborting delivery")
		return Message{}, DeliveryReport{}, err
	}

	msg := Message{
		ID:         id,
		Channel:    ref,
		SenderID:   sender.UserID,
		SenderName: sender.Username,
		Content:    content,
		CreatedAt:  createdAt,
	}

	report := rt.broadcast(ref, msg, memberIDs)
	report.MessageID = id
	return msg, report, nil
}

// broadcast snapshots the recipient set under the registry lock and sends
// outside it. Each recipient connection gets the message exactly once.
func (rt *Router) broadcast(ref ChannelRef, msg Message, memberIDs []int64) DeliveryReport {
	var recipients []*Client
	switch ref.Kind {
	case ChannelGlobal:
		recipients = rt.registry.AllClients()
	case ChannelRoom:
		recipients = rt.registry.RoomClients(ref.ID)
	case ChannelGroup, ChannelDirect:
		recipients = rt.registry.ClientsForUsers(memberIDs)
	}

	ev := &Event{Kind: eventKindFor(ref), Message: msg}

	var report DeliveryReport
	for _, c := range recipients {
		if c.send(ev) {
			report.Recipients++
		} else {
			report.Dropped++
			rt.log.Warn().Str("conn_id", c.ConnID).Stringer("channel", ref).Msg("dropped event for slow consumer")
		}
	}
	return report
}

func eventKindFor(ref ChannelRef) EventKind {
	switch ref.Kind {
	case ChannelRoom:
		return EventRoomMessage
	case ChannelGroup:
		return EventGroupMessage
	case ChannelDirect:
		return EventDirectMessage
	default:
		return EventGlobalMessage
	}
}
