package chat

import (
	"testing"
)

func TestResolveDestination(t *testing.T) {
	tests := []struct {
		name        string
		roomID      string
		recipientID string
		wantKind    DestinationKind
		wantTarget  string
		wantOK      bool
	}{
		{"room only", "room-1", "", DestinationRoom, "room-1", true},
		{"recipient only", "", "user-1", DestinationDirect, "user-1", true},
		{"both set, room wins", "room-1", "user-1", DestinationRoom, "room-1", true},
		{"both absent", "", "", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest, ok := ResolveDestination(tt.roomID, tt.recipientID)
			if ok != tt.wantOK {
				t.Fatalf("ResolveDestination() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if dest.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", dest.Kind, tt.wantKind)
			}
			if dest.TargetID != tt.wantTarget {
				t.Errorf("target = %q, want %q", dest.TargetID, tt.wantTarget)
			}
		})
	}
}

func TestMessage_Destination(t *testing.T) {
	roomID := "room-1"
	recipientID := "user-2"

	t.Run("room message", func(t *testing.T) {
		msg := Message{RoomID: &roomID}
		dest, ok := msg.Destination()
		if !ok || dest.Kind != DestinationRoom || dest.TargetID != roomID {
			t.Errorf("unexpected destination %+v ok=%v", dest, ok)
		}
	})

	t.Run("direct message", func(t *testing.T) {
		msg := Message{RecipientID: &recipientID}
		dest, ok := msg.Destination()
		if !ok || dest.Kind != DestinationDirect || dest.TargetID != recipientID {
			t.Errorf("unexpected destination %+v ok=%v", dest, ok)
		}
	})
}

func TestValidMessageType(t *testing.T) {
	for _, valid := range []string{MessageTypeText, MessageTypeImage, MessageTypeFile} {
		if !ValidMessageType(valid) {
			t.Errorf("expected %q to be valid", valid)
		}
	}
	for _, invalid := range []string{"", "video", "TEXT"} {
		if ValidMessageType(invalid) {
			t.Errorf("expected %q to be invalid", invalid)
		}
	}
}
