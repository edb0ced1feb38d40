package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mahaj/teamsync/pkg/model"
)

// Dispatcher decodes inbound frames and routes them to presence or chat.
// Failures of send, mark-read, edit and delete are reported to the originating
// connection with message-error. Join, leave and typing failures are dropped.
type Dispatcher struct {
	log      *slog.Logger
	presence *Presence
	chat     *Chat
	validate *validator.Validate
}

func NewDispatcher(log *slog.Logger, presence *Presence, chat *Chat) *Dispatcher {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Dispatcher{
		log:      log,
		presence: presence,
		chat:     chat,
		validate: validate,
	}
}

// Dispatch handles one frame read from conn.
func (d *Dispatcher) Dispatch(ctx context.Context, conn *Connection, frame []byte) {
	var env model.Envelope
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Panic while handling event", "event", env.Event, "user_id", conn.UserID(), "panic", r)
			d.reject(conn, env.Event, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		d.reject(conn, "", fmt.Errorf("%w: malformed event", ErrValidation))
		return
	}

	err := d.route(ctx, conn, env)
	if err == nil {
		return
	}
	switch env.Event {
	case model.EventJoinTeam, model.EventLeaveTeam, model.EventTyping:
		d.log.Debug("Dropped event", "event", env.Event, "user_id", conn.UserID(), "error", err)
	default:
		d.reject(conn, env.Event, err)
	}
}

func (d *Dispatcher) route(ctx context.Context, conn *Connection, env model.Envelope) error {
	switch env.Event {
	case model.EventJoinTeam:
		ref, err := d.teamRef(env.Data)
		if err != nil {
			return err
		}
		return d.presence.Join(ctx, conn, ref.TeamID)

	case model.EventLeaveTeam:
		ref, err := d.teamRef(env.Data)
		if err != nil {
			return err
		}
		return d.presence.Leave(ctx, conn, ref.TeamID)

	case model.EventSendMessage:
		var in model.SendMessage
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		_, err := d.chat.Send(ctx, conn, in.TeamID, in.Message)
		return err

	case model.EventMarkRead:
		var in model.MarkRead
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		id, err := parseID(in.MessageID)
		if err != nil {
			return err
		}
		return d.chat.MarkRead(ctx, conn, id, in.TeamID)

	case model.EventEditMessage:
		var in model.EditMessage
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		id, err := parseID(in.MessageID)
		if err != nil {
			return err
		}
		_, err = d.chat.Edit(ctx, conn, id, in.NewMessage)
		return err

	case model.EventDeleteMessage:
		var in model.DeleteMessage
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		id, err := parseID(in.MessageID)
		if err != nil {
			return err
		}
		return d.chat.Delete(ctx, conn, id)

	case model.EventTyping:
		var in model.Typing
		if err := d.decode(env.Data, &in); err != nil {
			return err
		}
		return d.chat.Typing(conn, in.TeamID, in.IsTyping)

	default:
		return fmt.Errorf("%w: unknown event %q", ErrValidation, env.Event)
	}
}

// teamRef accepts either {"teamId": "..."} or a bare JSON string.
func (d *Dispatcher) teamRef(data json.RawMessage) (model.TeamRef, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		ref := model.TeamRef{TeamID: id}
		return ref, d.check(&ref)
	}
	var ref model.TeamRef
	return ref, d.decode(data, &ref)
}

func (d *Dispatcher) decode(data json.RawMessage, dest any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing payload", ErrValidation)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: malformed payload", ErrValidation)
	}
	return d.check(dest)
}

func (d *Dispatcher) check(dest any) error {
	err := d.validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	problems := make([]string, 0, len(fields))
	for _, fe := range fields {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fe.Field()+" is required")
		case "max":
			problems = append(problems, fmt.Sprintf("%s cannot be more than %s characters", fe.Field(), fe.Param()))
		case "numeric":
			problems = append(problems, fe.Field()+" must be a message id")
		default:
			problems = append(problems, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, ", "))
}

func (d *Dispatcher) reject(conn *Connection, event string, err error) {
	if emitErr := conn.Emit(model.EventMessageError, model.MessageError{Error: ClientError(err)}); emitErr != nil {
		d.log.Debug("Failed to deliver message-error", "user_id", conn.UserID(), "event", event, "error", emitErr)
	}
}

func parseID(raw string) (int64, error) {
	id, err := model.ParseMessageID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: messageId must be a message id", ErrValidation)
	}
	return id, nil
}
