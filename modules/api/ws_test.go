package api

import (
	"encoding/json"
	"testing"
)

func TestHandleJoin_RepeatJoinIsDropped(t *testing.T) {
	// The guard runs before any dependency is touched, so a bare module
	// and a nil connection are enough to exercise it.
	m := &APIModule{}
	session := &wsSession{
		connID:   "conn-1",
		userID:   "alice-id",
		username: "alice",
		joined:   true,
	}

	m.handleJoin(nil, session, json.RawMessage(`{"userId":"bob-id","username":"bob"}`))

	if session.userID != "alice-id" || session.username != "alice" {
		t.Errorf("joined session was rebound to %s (%s)", session.username, session.userID)
	}
	if !session.joined {
		t.Error("session should remain joined")
	}
}
