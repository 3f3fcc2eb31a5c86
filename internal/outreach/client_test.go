package outreach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendMessage_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/messages" {
			t.Fatalf("path = %s, want /api/messages", r.URL.Path)
		}

		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Phone != "5511912345678" {
			t.Fatalf("phone = %q", msg.Phone)
		}
		if msg.Text == "" {
			t.Fatalf("empty message text")
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	code, retry, err := client.SendMessage(ctx, Message{
		Phone: "5511912345678",
		Text:  "Olá Ana, temos uma novidade que é a sua cara",
	})
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if code != http.StatusAccepted {
		t.Fatalf("status code = %d, want %d", code, http.StatusAccepted)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
}

func TestSendMessage_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	code, retry, err := client.SendMessage(ctx, Message{Phone: "5511912345678", Text: "oi"})
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if code != http.StatusTooManyRequests {
		t.Fatalf("status code = %d, want %d", code, http.StatusTooManyRequests)
	}
	if retry < 5*time.Second {
		t.Fatalf("retryAfter = %v, want at least 5s", retry)
	}
}

func TestSendMessage_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, _, err := client.SendMessage(ctx, Message{Phone: "5511912345678", Text: "oi"})
	if err == nil {
		t.Fatalf("expected error for server failure")
	}
}

func TestSendMessage_NotConfigured(t *testing.T) {
	var client *Client

	_, _, err := client.SendMessage(context.Background(), Message{Phone: "1", Text: "oi"})
	if err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
