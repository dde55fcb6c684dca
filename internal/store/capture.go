package store

import (
	"database/sql"
	"errors"
	"time"
)

// CaptureMode says why a frame was written.
type CaptureMode string

const (
	// CaptureContinuous is a frame saved because continuous mode is on.
	CaptureContinuous CaptureMode = "continuous"
	// CaptureSnapshot is a frame saved on user request.
	CaptureSnapshot CaptureMode = "snapshot"
)

// Capture is one frame persisted to disk.
type Capture struct {
	ID        string
	SessionID string
	Path      string
	Mode      CaptureMode
	Hands     int
	Width     int
	Height    int
	CreatedAt time.Time
}

// CaptureRepository provides access to captures.
type CaptureRepository struct {
	db *sql.DB
}

// Captures returns the capture repository for this store.
func (s *Store) Captures() *CaptureRepository {
	return &CaptureRepository{db: s.db}
}

// Create inserts a capture. CreatedAt is set when zero.
func (r *CaptureRepository) Create(c *Capture) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	var sessionID any
	if c.SessionID != "" {
		sessionID = c.SessionID
	}

	_, err := r.db.Exec(
		`INSERT INTO captures (id, session_id, path, mode, hands, width, height, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, sessionID, c.Path, string(c.Mode), c.Hands, c.Width, c.Height, c.CreatedAt,
	)
	return err
}

const captureColumns = `id, session_id, path, mode, hands, width, height, created_at`

// GetByID retrieves a capture by its ID.
func (r *CaptureRepository) GetByID(id string) (*Capture, error) {
	row := r.db.QueryRow(`SELECT `+captureColumns+` FROM captures WHERE id = ?`, id)

	c, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListBySession retrieves the captures of one session in the order they were taken.
func (r *CaptureRepository) ListBySession(sessionID string) ([]*Capture, error) {
	return r.query(
		`SELECT `+captureColumns+` FROM captures WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID,
	)
}

// List retrieves the most recent captures, newest first. A non-positive
// limit returns all of them.
func (r *CaptureRepository) List(limit int) ([]*Capture, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(
		`SELECT `+captureColumns+` FROM captures ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
}

func (r *CaptureRepository) query(q string, args ...any) ([]*Capture, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return captures, nil
}

func scanCapture(row scanner) (*Capture, error) {
	c := &Capture{}
	var sessionID sql.NullString
	var mode string

	err := row.Scan(&c.ID, &sessionID, &c.Path, &mode, &c.Hands, &c.Width, &c.Height, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.SessionID = sessionID.String
	c.Mode = CaptureMode(mode)
	return c, nil
}
