package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
)

func TestHTTPGatewaySendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody gatewayRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messageId":"wamid-001"}`))
	}))
	defer server.Close()

	g, err := NewWhatsAppGateway(server.URL)
	if err != nil {
		t.Fatalf("NewWhatsAppGateway() error = %v", err)
	}

	result, err := g.Send(context.Background(), "+919876543210", "your parcel needs attention", map[string]string{
		"orderNumber": "ORD-1001",
	})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if result.ProviderMessageID != "wamid-001" {
		t.Fatalf("ProviderMessageID = %q, want %q", result.ProviderMessageID, "wamid-001")
	}
	if gotBody.To != "+919876543210" {
		t.Fatalf("request.to = %q, want %q", gotBody.To, "+919876543210")
	}
	if gotBody.Channel != "whatsapp" {
		t.Fatalf("request.channel = %q, want whatsapp", gotBody.Channel)
	}
	if gotBody.Variables["orderNumber"] != "ORD-1001" {
		t.Fatalf("request.variables = %v, want orderNumber set", gotBody.Variables)
	}
}

func TestHTTPGatewaySendStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "server error is transient", statusCode: http.StatusBadGateway, wantTransient: true},
		{name: "unprocessable is permanent", statusCode: http.StatusUnprocessableEntity, wantTransient: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte(`{"errorCode":"E42","error":"gateway refused"}`))
			}))
			defer server.Close()

			g, err := NewSMSGateway(server.URL)
			if err != nil {
				t.Fatalf("NewSMSGateway() error = %v", err)
			}

			_, err = g.Send(context.Background(), "+919876543210", "hi", nil)
			if err == nil {
				t.Fatal("Send() expected error, got nil")
			}

			var adapterErr *AdapterError
			if !errors.As(err, &adapterErr) {
				t.Fatalf("error type = %T, want *AdapterError", err)
			}
			if adapterErr.StatusCode != tc.statusCode {
				t.Fatalf("StatusCode = %d, want %d", adapterErr.StatusCode, tc.statusCode)
			}
			if adapterErr.Code != "E42" {
				t.Fatalf("Code = %q, want E42", adapterErr.Code)
			}
			if IsTransient(err) != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", IsTransient(err), tc.wantTransient)
			}
		})
	}
}

func TestHTTPGatewaySendContextCancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context; otherwise Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	g, err := NewSMSGateway(server.URL)
	if err != nil {
		t.Fatalf("NewSMSGateway() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err = g.Send(ctx, "+919876543210", "hi", nil)
	if err == nil {
		t.Fatal("Send() expected error after cancellation, got nil")
	}
	if IsTransient(err) {
		t.Fatal("a canceled send should not classify as transient")
	}
}

func TestHTTPGatewaySendTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	g, err := NewSMSGateway(server.URL)
	if err != nil {
		t.Fatalf("NewSMSGateway() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Send(ctx, "+919876543210", "hi", nil)
	if err == nil {
		t.Fatal("Send() expected timeout error, got nil")
	}
	if !IsTransient(err) {
		t.Fatal("a timed-out send should classify as transient")
	}
}

func TestNewVoiceGatewayChannelGuard(t *testing.T) {
	t.Parallel()

	if _, err := NewVoiceGateway("https://bridge.local/call", domain.ChannelAIVoice); err != nil {
		t.Fatalf("NewVoiceGateway(AI_VOICE) error = %v", err)
	}
	if _, err := NewVoiceGateway("https://bridge.local/call", domain.ChannelIVR); err != nil {
		t.Fatalf("NewVoiceGateway(IVR) error = %v", err)
	}
	if _, err := NewVoiceGateway("https://bridge.local/call", domain.ChannelSMS); err == nil {
		t.Fatal("NewVoiceGateway(SMS) expected error, got nil")
	}
}

func TestNewGatewayValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewWhatsAppGateway(""); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewWhatsAppGateway("::not-a-url"); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
}
