package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mahaj/teamsync/pkg/model"
)

var (
	errQuit   = errors.New("quit")
	errNoTeam = errors.New("join a team first: /join <teamId>")
)

// session is the client's view of which team plain text goes to.
type session struct {
	team string
}

// parse turns one input line into an outbound event.
func (s *session) parse(line string) (string, any, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		if s.team == "" {
			return "", nil, errNoTeam
		}
		return model.EventSendMessage, model.SendMessage{TeamID: s.team, Message: line}, nil
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/quit":
		return "", nil, errQuit
	case "/join":
		if rest == "" {
			return "", nil, errors.New("usage: /join <teamId>")
		}
		s.team = rest
		return model.EventJoinTeam, model.TeamRef{TeamID: rest}, nil
	case "/leave":
		team := rest
		if team == "" {
			team = s.team
		}
		if team == "" {
			return "", nil, errNoTeam
		}
		if team == s.team {
			s.team = ""
		}
		return model.EventLeaveTeam, model.TeamRef{TeamID: team}, nil
	case "/read":
		if s.team == "" {
			return "", nil, errNoTeam
		}
		if rest == "" {
			return "", nil, errors.New("usage: /read <messageId>")
		}
		return model.EventMarkRead, model.MarkRead{MessageID: rest, TeamID: s.team}, nil
	case "/edit":
		id, text, ok := strings.Cut(rest, " ")
		if !ok || strings.TrimSpace(text) == "" {
			return "", nil, errors.New("usage: /edit <messageId> <text>")
		}
		return model.EventEditMessage, model.EditMessage{MessageID: id, NewMessage: strings.TrimSpace(text), TeamID: s.team}, nil
	case "/delete":
		if rest == "" {
			return "", nil, errors.New("usage: /delete <messageId>")
		}
		return model.EventDeleteMessage, model.DeleteMessage{MessageID: rest, TeamID: s.team}, nil
	case "/typing":
		if s.team == "" {
			return "", nil, errNoTeam
		}
		return model.EventTyping, model.Typing{TeamID: s.team, IsTyping: rest != "off"}, nil
	default:
		return "", nil, fmt.Errorf("unknown command %s", cmd)
	}
}

// render formats one inbound frame for the terminal. ok is false for frames
// that are not worth showing.
func render(frame []byte) (string, bool) {
	var env model.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return color.Gray.Sprintf("raw: %s", frame), true
	}

	switch env.Event {
	case model.EventNewMessage, model.EventMessageEdited:
		var msg model.ChatMessage
		if json.Unmarshal(env.Data, &msg) != nil {
			return "", false
		}
		suffix := ""
		if msg.IsEdited {
			suffix = color.Gray.Sprint(" (edited)")
		}
		return fmt.Sprintf("%s %s %s: %s%s",
			color.Gray.Sprint(msg.CreatedAt.Local().Format(time.Kitchen)),
			color.Gray.Sprintf("[%s]", msg.IDString()),
			color.Cyan.Sprint(senderLabel(msg)),
			msg.Text, suffix), true

	case model.EventMessageDeleted:
		var d model.MessageDeleted
		if json.Unmarshal(env.Data, &d) != nil {
			return "", false
		}
		return color.Gray.Sprintf("message %s was deleted", d.MessageID), true

	case model.EventMessageRead:
		var r model.MessageRead
		if json.Unmarshal(env.Data, &r) != nil {
			return "", false
		}
		return color.Gray.Sprintf("%s read %s", r.ReadBy.UserID, r.MessageID), true

	case model.EventUserTyping:
		var u model.UserTyping
		if json.Unmarshal(env.Data, &u) != nil || !u.IsTyping {
			return "", false
		}
		return color.Gray.Sprintf("%s is typing...", u.UserName), true

	case model.EventOnlineStatus:
		var u model.OnlineStatusUpdate
		if json.Unmarshal(env.Data, &u) != nil {
			return "", false
		}
		switch {
		case u.UserLeft != nil:
			return color.Yellow.Sprintf("%s left %s", u.UserLeft.Name, u.TeamID), true
		case u.UserJoined != nil:
			online := make([]string, 0, len(u.OnlineMembers)+len(u.OnlineMentors))
			for _, e := range append(u.OnlineMembers, u.OnlineMentors...) {
				online = append(online, e.Name)
			}
			return color.Green.Sprintf("%s joined %s (online: %s)", u.UserJoined.Name, u.TeamID, strings.Join(online, ", ")), true
		}
		return "", false

	case model.EventMessageError:
		var e model.MessageError
		if json.Unmarshal(env.Data, &e) != nil {
			return "", false
		}
		return color.Red.Sprintf("error: %s", e.Error), true

	default:
		return color.Magenta.Sprintf("%s: %s", env.Event, env.Data), true
	}
}

func senderLabel(msg model.ChatMessage) string {
	if msg.SenderName != "" {
		return msg.SenderName
	}
	return msg.SenderID
}
