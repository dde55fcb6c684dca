package e2e

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/app"
	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/display"
	"github.com/ayusman/handpose/internal/overlay"
	"github.com/ayusman/handpose/internal/server"
	"github.com/ayusman/handpose/internal/sink"
	"github.com/ayusman/handpose/internal/store"
)

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	outDir := filepath.Join(tmpDir, "Output Images")

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	const sessionID = "e2e-session"
	if err := s.Sessions().Start(&store.Session{ID: sessionID, Continuous: true, OutputDir: outDir}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	srv := server.New(server.Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	var frames []*gocv.Mat
	for _, c := range []color.RGBA{{R: 200, A: 255}, {G: 200, A: 255}, {B: 200, A: 255}} {
		frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
		gocv.Rectangle(&frame, image.Rect(0, 0, 40, 120), c, -1)
		defer frame.Close()
		frames = append(frames, &frame)
	}

	mockDetector := detector.NewMockDetector()
	mockDetector.SetSequence([][]detector.HandLandmarks{
		nil,
		{detector.OpenPalmLandmarks()},
		nil,
	})

	out, err := sink.New(sink.Config{
		Dir:        outDir,
		Continuous: true,
		SessionID:  sessionID,
		Catalog:    s.Captures(),
	})
	if err != nil {
		t.Fatalf("sink.New() error = %v", err)
	}

	// Snapshot on the second frame, then let the stream run out.
	screen := display.NewMockDisplay(display.NoKey, app.KeySnapshot)
	defer screen.Release()

	loop, err := app.New(app.Config{
		Camera:     capture.NewMockCamera(frames, false),
		Detector:   mockDetector,
		Renderer:   overlay.NewRenderer(overlay.DefaultLandmarkSpec(), overlay.DefaultConnectionSpec()),
		Sink:       out,
		Display:    screen,
		Continuous: true,
		Publisher:  srv.Hub(),
		Sessions:   s.Sessions(),
		SessionID:  sessionID,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	t.Run("RunLoop", func(t *testing.T) {
		if err := loop.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if loop.State() != app.StateTerminated {
			t.Errorf("state = %v, want terminated", loop.State())
		}
	})

	t.Run("FilesWritten", func(t *testing.T) {
		entries, err := os.ReadDir(outDir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		// Three continuous frames plus one snapshot.
		if len(entries) != 4 {
			t.Errorf("expected 4 files, got %d", len(entries))
		}
	})

	t.Run("HubSawEveryFrame", func(t *testing.T) {
		if srv.Hub().Published() != 3 {
			t.Errorf("Published() = %d, want 3", srv.Hub().Published())
		}
	})

	t.Run("SessionRecorded", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions/" + sessionID)
		if err != nil {
			t.Fatalf("GET session error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var session struct {
			Frames   int    `json:"frames"`
			Saved    int    `json:"saved"`
			EndedAt  string `json:"ended_at"`
			Captures []struct {
				Mode  string `json:"mode"`
				Hands int    `json:"hands"`
			} `json:"captures"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			t.Fatalf("decode error = %v", err)
		}

		if session.Frames != 3 || session.Saved != 4 || session.EndedAt == "" {
			t.Errorf("session = frames %d, saved %d, ended %q", session.Frames, session.Saved, session.EndedAt)
		}

		modes := map[string]int{}
		withHands := 0
		for _, c := range session.Captures {
			modes[c.Mode]++
			if c.Hands > 0 {
				withHands++
			}
		}
		if modes["continuous"] != 3 || modes["snapshot"] != 1 {
			t.Errorf("capture modes = %v, want 3 continuous and 1 snapshot", modes)
		}
		// Frame two is saved twice: once continuously, once as the snapshot.
		if withHands != 2 {
			t.Errorf("captures with hands = %d, want 2", withHands)
		}
	})

	t.Run("CaptureImageServed", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/captures?limit=1")
		if err != nil {
			t.Fatalf("GET captures error = %v", err)
		}
		var listed struct {
			Captures []struct {
				ID string `json:"id"`
			} `json:"captures"`
		}
		json.NewDecoder(resp.Body).Decode(&listed)
		resp.Body.Close()

		if len(listed.Captures) != 1 {
			t.Fatalf("expected 1 capture, got %d", len(listed.Captures))
		}

		resp, err = client.Get(ts.URL + "/api/captures/" + listed.Captures[0].ID + "/image")
		if err != nil {
			t.Fatalf("GET image error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("image status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})
}
