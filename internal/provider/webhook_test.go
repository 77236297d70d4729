package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/provider"
)

func TestWebhookForwarder_Send(t *testing.T) {
	got := make(chan domain.ResultEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		var ev domain.ResultEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		got <- ev
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	f := provider.NewWebhookForwarder(srv.URL, time.Second)
	res := domain.Result{RequestID: "r1", SubjectID: "u1", Status: domain.StatusCompleted, Score: 42}
	if err := f.Send(context.Background(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := <-got
	if ev.Event != domain.EventRequestResult || ev.Data.RequestID != "r1" || ev.Data.SubjectID != "u1" || ev.Data.Result.Score != 42 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestWebhookForwarder_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := provider.NewWebhookForwarder(srv.URL, time.Second)
	if err := f.Send(context.Background(), domain.Result{RequestID: "r1"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
