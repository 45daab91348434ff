package repository

import (
	"database/sql"
	"fmt"

	"jzonefm/model"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(track *model.Track) error
	GetTrackByID(id string) (*model.Track, error)
	GetTracksVisibleTo(userID int64) ([]*model.Track, error)
	GetTracksByOwner(ownerID int64) ([]*model.Track, error)
	IncrementPlays(id string) error
	DeleteTrack(id string, ownerID int64) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	db *sql.DB
}

// NewMySQLTrackRepository creates a new mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{db: db}
}

const trackColumns = "id, owner_id, title, artist, album, audio_path, COALESCE(cover_path, ''), duration, trim_start, trim_end, visibility, plays_count, added_at"

func scanTrack(row interface{ Scan(...interface{}) error }) (*model.Track, error) {
	t := &model.Track{}
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Artist, &t.Album, &t.AudioPath, &t.CoverPath,
		&t.Duration, &t.TrimStart, &t.TrimEnd, &t.Visibility, &t.PlaysCount, &t.AddedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTrack inserts a new track row.
func (r *mysqlTrackRepository) CreateTrack(track *model.Track) error {
	query := `INSERT INTO tracks (id, owner_id, title, artist, album, audio_path, cover_path, duration, trim_start, trim_end, visibility, plays_count, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare create track statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(track.ID, track.OwnerID, track.Title, track.Artist, track.Album,
		track.AudioPath, track.CoverPath, track.Duration, track.TrimStart, track.TrimEnd,
		track.Visibility, track.PlaysCount, track.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to execute create track statement: %w", err)
	}
	return nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(id string) (*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id = ?"
	t, err := scanTrack(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track row for ID %s: %w", id, err)
	}
	return t, nil
}

// GetTracksVisibleTo returns public tracks plus the user's own tracks, newest first.
func (r *mysqlTrackRepository) GetTracksVisibleTo(userID int64) ([]*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE visibility = ? OR owner_id = ? ORDER BY added_at DESC"
	rows, err := r.db.Query(query, model.VisibilityPublic, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visible tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// GetTracksByOwner returns all tracks owned by the given user, newest first.
func (r *mysqlTrackRepository) GetTracksByOwner(ownerID int64) ([]*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE owner_id = ? ORDER BY added_at DESC"
	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for owner %d: %w", ownerID, err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// IncrementPlays atomically bumps the play counter for a track.
func (r *mysqlTrackRepository) IncrementPlays(id string) error {
	_, err := r.db.Exec("UPDATE tracks SET plays_count = plays_count + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to increment plays for track %s: %w", id, err)
	}
	return nil
}

// DeleteTrack removes a track row, restricted to its owner.
func (r *mysqlTrackRepository) DeleteTrack(id string, ownerID int64) error {
	res, err := r.db.Exec("DELETE FROM tracks WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete track %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for track %s: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
