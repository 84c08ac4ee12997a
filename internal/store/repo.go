package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/models"
)

const selectColumns = `id, title, latitude, longitude, photo, notes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSpot(row scanner) (models.Spot, error) {
	var s models.Spot
	err := row.Scan(&s.ID, &s.Title, &s.Latitude, &s.Longitude, &s.Photo, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Save inserts a new spot. It fails with apperr.ErrAlreadyExists when the id
// is taken.
func (db *DB) Save(ctx context.Context, s models.Spot) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO spots (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Title, s.Latitude, s.Longitude, s.Photo, s.Notes, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("store: save %s: %w", s.ID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: save %s: %w", s.ID, err)
	}
	return nil
}

// Get returns the spot with the given id or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (models.Spot, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM spots WHERE id = ?`, id)
	s, err := scanSpot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Spot{}, apperr.ErrNotFound
		}
		return models.Spot{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	return s, nil
}

// GetAll returns every stored spot. Callers must not rely on the order.
func (db *DB) GetAll(ctx context.Context) ([]models.Spot, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+selectColumns+` FROM spots`)
	if err != nil {
		return nil, fmt.Errorf("store: get all: %w", err)
	}
	defer rows.Close()

	out := []models.Spot{}
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update replaces the full record stored at id. The id column always keeps
// the key it was addressed by.
func (db *DB) Update(ctx context.Context, id string, s models.Spot) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE spots SET
			title      = ?,
			latitude   = ?,
			longitude  = ?,
			photo      = ?,
			notes      = ?,
			created_at = ?,
			updated_at = ?
		WHERE id = ?
	`, s.Title, s.Latitude, s.Longitude, s.Photo, s.Notes, s.CreatedAt, s.UpdatedAt, id)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update %s: %w", id, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Delete removes the spot. Deleting an absent id is not an error.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM spots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return nil
}

func isConstraint(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	return false
}
