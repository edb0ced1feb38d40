package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChatMessage_AddReceipt_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	msg := ChatMessage{ID: 42, TeamID: "T1", SenderID: "alice"}
	at := time.Now().UTC()

	// When bob reads the message twice
	first := msg.AddReceipt(ReadReceipt{UserID: "bob", ReadAt: at})
	second := msg.AddReceipt(ReadReceipt{UserID: "bob", ReadAt: at.Add(time.Minute)})

	// Then only the first receipt is kept
	req.True(first)
	req.False(second)
	req.Len(msg.ReadBy, 1)
	req.Equal(at, msg.ReadBy[0].ReadAt)
	req.True(msg.IsReadBy("bob"))
	req.False(msg.IsReadBy("alice"))
}

func TestChatMessage_Normalize_Serializes_Empty_ReadBy(t *testing.T) {
	req := require.New(t)
	msg := ChatMessage{ID: 1234567890123, TeamID: "T1", SenderID: "alice", Text: "hello"}
	msg.Normalize()

	raw, err := json.Marshal(msg)
	req.NoError(err)
	req.Contains(string(raw), `"readBy":[]`)
	req.Contains(string(raw), `"id":"1234567890123"`)
	req.Contains(string(raw), `"messageType":"text"`)
	req.NotContains(string(raw), "editedAt")
}

func TestParseMessageID(t *testing.T) {
	req := require.New(t)
	id, err := ParseMessageID("98765")
	req.NoError(err)
	req.Equal(int64(98765), id)

	_, err = ParseMessageID("not-a-number")
	req.Error(err)
}

func TestEncode_Wraps_Payload_In_Envelope(t *testing.T) {
	req := require.New(t)
	frame, err := Encode(EventMessageDeleted, MessageDeleted{MessageID: "7", TeamID: "T1"})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(frame, &env))
	req.Equal(EventMessageDeleted, env.Event)
	req.JSONEq(`{"messageId":"7","teamId":"T1"}`, string(env.Data))
}
