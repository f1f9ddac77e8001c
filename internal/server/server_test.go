package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"updates_notifier/internal/digest"
	"updates_notifier/internal/models"
	"updates_notifier/internal/notify"
	"updates_notifier/internal/server"

	"github.com/stretchr/testify/require"
)

type fakeDigest struct {
	result   digest.Result
	err      error
	lastDays int
}

func (f *fakeDigest) Generate(_ context.Context, days int, _ time.Time) (digest.Result, error) {
	f.lastDays = days
	return f.result, f.err
}

type fakeDispatcher struct {
	events []models.ChangeEvent
}

func (f *fakeDispatcher) Dispatch(_ context.Context, events []models.ChangeEvent) []notify.Outcome {
	f.events = events
	outcomes := make([]notify.Outcome, 0, len(events))
	for _, ev := range events {
		outcomes = append(outcomes, notify.Outcome{URL: ev.Record.URL, Notifier: ev.Record.NotifierName, Delivered: true})
	}
	return outcomes
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func TestGenerateDigest(t *testing.T) {
	dg := &fakeDigest{result: digest.Result{
		Status:  digest.StatusOK,
		Message: "digest generated for 2 records",
		Groups: map[string]digest.GroupResult{
			"whats-new": {Count: 2, ArchivePath: "digests/whats-new/2025-08-25.md"},
		},
	}}
	srv := server.NewServer(dg, &fakeDispatcher{}, &fakePinger{})

	t.Run("explicit days", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/digest", strings.NewReader(`{"days": 3}`))
		w := httptest.NewRecorder()

		srv.GenerateDigest(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 3, dg.lastDays)
		require.Contains(t, w.Body.String(), "whats-new")
	})

	t.Run("empty body defaults to 7 days", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/digest", strings.NewReader(""))
		w := httptest.NewRecorder()

		srv.GenerateDigest(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 7, dg.lastDays)
	})

	t.Run("negative days rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/digest", strings.NewReader(`{"days": -1}`))
		w := httptest.NewRecorder()

		srv.GenerateDigest(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGenerateDigest_EmptyWindow(t *testing.T) {
	dg := &fakeDigest{result: digest.Result{Status: digest.StatusNoData, Message: "no records published in the last 7 days"}}
	srv := server.NewServer(dg, &fakeDispatcher{}, &fakePinger{})

	req := httptest.NewRequest("POST", "/api/digest", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	srv.GenerateDigest(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "no records")
}

func TestGenerateDigest_ServiceError(t *testing.T) {
	dg := &fakeDigest{err: errors.New("boom")}
	srv := server.NewServer(dg, &fakeDispatcher{}, &fakePinger{})

	req := httptest.NewRequest("POST", "/api/digest", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	srv.GenerateDigest(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNotify(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	srv := server.NewServer(&fakeDigest{}, dispatcher, &fakePinger{})

	body := `{"records": [
		{"kind": "created", "record": {"url": "https://example.com/1", "notifier_name": "aws", "title": "A"}},
		{"kind": "modified",
		 "record": {"url": "https://example.com/2", "notifier_name": "aws", "title": "Same", "category": "Security"},
		 "prev_title": "Same", "prev_url": "https://example.com/2"}
	]}`

	req := httptest.NewRequest("POST", "/api/notify", strings.NewReader(body))
	w := httptest.NewRecorder()

	srv.Notify(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	// Событие без изменения title/url отфильтровано до диспетчера.
	require.Len(t, dispatcher.events, 1)
	require.Equal(t, "https://example.com/1", dispatcher.events[0].Record.URL)

	var resp struct {
		Received int              `json:"received"`
		Accepted int              `json:"accepted"`
		Outcomes []notify.Outcome `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Received)
	require.Equal(t, 1, resp.Accepted)
	require.Len(t, resp.Outcomes, 1)
	require.True(t, resp.Outcomes[0].Delivered)
}

func TestNotify_InvalidBody(t *testing.T) {
	srv := server.NewServer(&fakeDigest{}, &fakeDispatcher{}, &fakePinger{})

	req := httptest.NewRequest("POST", "/api/notify", strings.NewReader(`{ broken`))
	w := httptest.NewRecorder()

	srv.Notify(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := server.NewServer(&fakeDigest{}, &fakeDispatcher{}, &fakePinger{})
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		srv.HealthCheck(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("store down", func(t *testing.T) {
		srv := server.NewServer(&fakeDigest{}, &fakeDispatcher{}, &fakePinger{err: errors.New("down")})
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		srv.HealthCheck(w, req)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
