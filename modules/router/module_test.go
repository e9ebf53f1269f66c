package router

import "testing"

func TestNewModule_HubAndWelcomeReady(t *testing.T) {
	m := NewModule()

	// Both live for the whole process lifetime; the API layer takes its
	// references before the application starts.
	if m.Hub() == nil {
		t.Fatal("hub should exist from construction")
	}
	if m.Welcome() == nil {
		t.Fatal("welcome scheduler should exist from construction")
	}
}
