package ws

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"conectaplus/internal/apperr"
	"conectaplus/internal/model"
	"conectaplus/internal/service"
)

type errorEvent struct {
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// Dispatcher routes inbound events through validation and rate limiting
// into the coordinators. Every handler failure comes back to the sender
// as a structured error event; nothing is broadcast.
type Dispatcher struct {
	hub     *Hub
	limiter *rateLimiter
	rooms   *service.RoomService
	games   *service.GameService
	turns   *service.TurnService
	voting  *service.VotingService
	debates *service.DebateService
}

// NewDispatcher wires the event router.
func NewDispatcher(
	hub *Hub,
	rooms *service.RoomService,
	games *service.GameService,
	turns *service.TurnService,
	voting *service.VotingService,
	debates *service.DebateService,
) *Dispatcher {
	return &Dispatcher{
		hub:     hub,
		limiter: newRateLimiter(),
		rooms:   rooms,
		games:   games,
		turns:   turns,
		voting:  voting,
		debates: debates,
	}
}

// Dispatch handles one inbound message from connID. A panicking handler
// is contained; the connection and the room survive it.
func (d *Dispatcher) Dispatch(ctx context.Context, connID string, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("connId", connID).
				Str("event", msg.Type).
				Interface("panic", r).
				Msg("handler panic recovered")
			d.sendError(connID, apperr.Infra("internal error", nil))
		}
	}()

	if !d.limiter.Allow(connID, msg.Type) {
		d.sendError(connID, apperr.Conflict("too many requests, slow down"))
		return
	}

	if err := d.route(ctx, connID, msg); err != nil {
		log.Warn().
			Str("connId", connID).
			Str("event", msg.Type).
			Err(err).
			Msg("event rejected")
		d.sendError(connID, err)
	}
}

func (d *Dispatcher) route(ctx context.Context, connID string, msg *Message) error {
	switch msg.Type {
	case EvtJoin:
		var p joinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		// Membership first, so the joiner receives its own join broadcast.
		d.hub.Assign(connID, p.RoomCode)
		if err := d.rooms.Join(ctx, connID, p.PlayerID, p.PlayerName, p.RoomCode); err != nil {
			d.hub.Leave(connID)
			return err
		}
		return nil

	case EvtGetRoomState:
		var p roomPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.rooms.GetRoomState(connID, p.RoomCode)

	case EvtReconnect:
		var p reconnectPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		d.hub.Assign(connID, p.RoomCode)
		if err := d.rooms.Reconnect(ctx, connID, p.RoomCode, p.PlayerID); err != nil {
			d.hub.Leave(connID)
			return err
		}
		return nil

	case EvtStartGame:
		var p roomActorPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.games.StartGame(ctx, p.RoomCode, p.PlayerID)

	case EvtStartExplanation:
		var p startExplanationPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.games.StartExplanation(ctx, p.GameID)

	case EvtDrawCard:
		var p drawCardPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.games.DrawCard(ctx, p.RoomCode, p.PlayerID, model.CardCategory(p.Category))

	case EvtEndGameByModerator:
		var p roomActorPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.games.EndGameByModerator(ctx, p.RoomCode, p.PlayerID)

	case EvtCardRead:
		var p cardActionPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.turns.CardRead(ctx, p.PlayerID, p.CardID)

	case EvtPlayerAnswered:
		var p cardActionPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.voting.PlayerAnswered(ctx, p.PlayerID, p.CardID)

	case EvtSkipTurn:
		var p roomActorPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.turns.SkipTurn(ctx, p.RoomCode, p.PlayerID)

	case EvtApproveAnswer:
		var p approveAnswerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.voting.ApproveAnswer(ctx, p.PlayerID, *p.Approved, p.RoomCode)

	case EvtResolveDebate:
		var p resolveDebatePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return d.debates.ResolveDebate(ctx, p.RoomCode, p.ModeratorID, p.GrantPoints)

	default:
		return apperr.Validation("unknown event type: " + msg.Type)
	}
}

// Disconnect tears down all per-connection state after the socket
// closes.
func (d *Dispatcher) Disconnect(connID string) {
	d.limiter.Forget(connID)
	d.rooms.Disconnect(connID)
}

type validator interface {
	validate() []apperr.FieldError
}

func decode(raw json.RawMessage, into validator) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, into); err != nil {
			return apperr.Validation("malformed payload")
		}
	}
	if fields := into.validate(); len(fields) > 0 {
		return apperr.Validation("invalid payload", fields...)
	}
	return nil
}

func (d *Dispatcher) sendError(connID string, err error) {
	evt := errorEvent{Message: "internal error", Code: string(apperr.KindInternal)}
	if ae, ok := apperr.As(err); ok {
		evt.Message = ae.Message
		evt.Code = string(ae.Kind)
		evt.Details = ae.Fields
	}
	d.hub.ToConn(connID, service.EvtError, evt)
}
