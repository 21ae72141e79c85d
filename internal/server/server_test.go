package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/mpatra/handrange/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return New(Config{Store: s, Frames: NewFrameBuffer(), Hub: NewReadingsHub()}), s
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestServer_Sessions(t *testing.T) {
	srv, s := newTestServer(t)

	s.Sessions().Create(&store.Session{ID: "session-1", CameraID: 1})
	s.Measurements().Insert(&store.Measurement{
		SessionID:  "session-1",
		PixelWidth: 400,
		DistanceCM: 150,
		DistanceM:  1.5,
		NearRange:  true,
	})

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body struct {
			Sessions []struct {
				ID       string `json:"id"`
				CameraID int    `json:"camera_id"`
				EndedAt  string `json:"ended_at"`
			} `json:"sessions"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(body.Sessions) != 1 {
			t.Fatalf("len(sessions) = %d, want 1", len(body.Sessions))
		}
		if body.Sessions[0].ID != "session-1" || body.Sessions[0].CameraID != 1 {
			t.Errorf("unexpected session: %+v", body.Sessions[0])
		}
		if body.Sessions[0].EndedAt != "" {
			t.Error("open session should have no ended_at")
		}
	})

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/session-1", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("session measurements", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/session-1/measurements", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body struct {
			Measurements []struct {
				DistanceCM float64 `json:"distance_cm"`
				NearRange  bool    `json:"near_range"`
			} `json:"measurements"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(body.Measurements) != 1 {
			t.Fatalf("len(measurements) = %d, want 1", len(body.Measurements))
		}
		if body.Measurements[0].DistanceCM != 150 || !body.Measurements[0].NearRange {
			t.Errorf("unexpected measurement: %+v", body.Measurements[0])
		}
	})

	t.Run("recent measurements", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/measurements?limit=10", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), `"distance_cm":150`) {
			t.Errorf("missing measurement in body: %s", rec.Body.String())
		}
	})

	t.Run("measurements filtered by session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/measurements?session_id=session-1", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), `"session_id":"session-1"`) {
			t.Errorf("missing session measurement in body: %s", rec.Body.String())
		}

		req = httptest.NewRequest(http.MethodGet, "/api/measurements?session_id=nope", nil)
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "session-1") {
			t.Error("unknown session filter should yield an empty list")
		}
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/sessions/session-1", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}

		req = httptest.NewRequest(http.MethodGet, "/api/sessions/session-1", nil)
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("deleted session still served: status = %d", rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func TestFrameBuffer(t *testing.T) {
	buf := NewFrameBuffer()

	if jpeg, seq := buf.Latest(); jpeg != nil || seq != 0 {
		t.Error("empty buffer should have no frame")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	buf.Update(&frame)

	jpeg, seq := buf.Latest()
	if len(jpeg) == 0 {
		t.Fatal("buffer should hold an encoded frame")
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}

	buf.Update(nil)
	if _, seq := buf.Latest(); seq != 1 {
		t.Error("nil frame should be dropped")
	}

	buf.Update(&frame)
	if _, seq := buf.Latest(); seq != 2 {
		t.Errorf("seq = %d, want 2", seq)
	}
}

func TestStreamHandler(t *testing.T) {
	buf := NewFrameBuffer()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	buf.Update(&frame)

	handler := NewStreamHandler(buf)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "--frame") || !strings.Contains(body, "image/jpeg") {
		t.Error("body should contain at least one MJPEG part")
	}
}
