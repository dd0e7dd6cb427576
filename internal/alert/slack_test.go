package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSlackChannel_PostsAttachment(t *testing.T) {
	var got slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode webhook body: %v", err)
		}
	}))
	defer srv.Close()

	ch := NewSlackChannel(srv.URL)
	err := ch.Send(context.Background(), AlertPayload{
		Level:     Warning,
		Title:     "USDT blocked",
		Message:   "buying is latched off",
		Timestamp: time.Unix(1700000000, 0),
		Fields:    map[string]string{"symbol": "ADA"},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(got.Attachments) != 1 {
		t.Fatalf("Expected 1 attachment, got %d", len(got.Attachments))
	}
	att := got.Attachments[0]
	if att.Color != "#ffcc00" {
		t.Errorf("Expected warning color, got %s", att.Color)
	}
	if att.Pretext != "[WARNING] USDT blocked" {
		t.Errorf("Unexpected pretext: %s", att.Pretext)
	}
	if att.Footer != "gridbot" {
		t.Errorf("Unexpected footer: %s", att.Footer)
	}
	if att.Ts != 1700000000 {
		t.Errorf("Unexpected timestamp: %d", att.Ts)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "symbol" || att.Fields[0].Value != "ADA" {
		t.Errorf("Unexpected fields: %+v", att.Fields)
	}
}

func TestSlackChannel_EmptyURLIsNoop(t *testing.T) {
	if err := NewSlackChannel("").Send(context.Background(), AlertPayload{}); err != nil {
		t.Errorf("Expected empty webhook to be a no-op, got %v", err)
	}
}

func TestSlackChannel_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewSlackChannel(srv.URL).Send(context.Background(), AlertPayload{Level: Info}); err == nil {
		t.Error("Expected an error for a 500 response")
	}
}
