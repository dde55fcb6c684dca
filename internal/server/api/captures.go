package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/handpose/internal/store"
)

// DefaultCaptureLimit caps GET /api/captures when no limit is given.
const DefaultCaptureLimit = 100

// CaptureHandler handles HTTP requests for capture resources.
type CaptureHandler struct {
	store *store.Store
}

// NewCaptureHandler creates a new CaptureHandler with the given store.
func NewCaptureHandler(s *store.Store) *CaptureHandler {
	return &CaptureHandler{store: s}
}

// ServeHTTP routes:
//
//	GET /api/captures[?limit=N][&session=ID]
//	GET /api/captures/{id}
//	GET /api/captures/{id}/image
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/captures")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "":
		h.list(w, r)
	case strings.HasSuffix(path, "/image"):
		h.image(w, r, strings.TrimSuffix(path, "/image"))
	case strings.Contains(path, "/"):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		h.get(w, path)
	}
}

type captureResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id,omitempty"`
	Path      string `json:"path"`
	Mode      string `json:"mode"`
	Hands     int    `json:"hands"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt string `json:"created_at"`
}

type listCapturesResponse struct {
	Captures []captureResponse `json:"captures"`
}

func toCaptureResponse(c *store.Capture) captureResponse {
	return captureResponse{
		ID:        c.ID,
		SessionID: c.SessionID,
		Path:      c.Path,
		Mode:      string(c.Mode),
		Hands:     c.Hands,
		Width:     c.Width,
		Height:    c.Height,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func toCaptureResponses(captures []*store.Capture) []captureResponse {
	out := make([]captureResponse, 0, len(captures))
	for _, c := range captures {
		out = append(out, toCaptureResponse(c))
	}
	return out
}

// list handles GET /api/captures.
func (h *CaptureHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		captures []*store.Capture
		err      error
	)

	if session := r.URL.Query().Get("session"); session != "" {
		captures, err = h.store.Captures().ListBySession(session)
	} else {
		limit := DefaultCaptureLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
		}
		captures, err = h.store.Captures().List(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list captures")
		return
	}

	writeJSON(w, http.StatusOK, listCapturesResponse{Captures: toCaptureResponses(captures)})
}

// get handles GET /api/captures/{id}.
func (h *CaptureHandler) get(w http.ResponseWriter, id string) {
	c, err := h.store.Captures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Capture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get capture")
		return
	}

	writeJSON(w, http.StatusOK, toCaptureResponse(c))
}

// image handles GET /api/captures/{id}/image and serves the saved file.
func (h *CaptureHandler) image(w http.ResponseWriter, r *http.Request, id string) {
	c, err := h.store.Captures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Capture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get capture")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, c.Path)
}
