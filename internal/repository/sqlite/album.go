package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
)

// CreateAlbum inserts a new album. Its share list starts empty.
func (db *DB) CreateAlbum(ctx context.Context, album *model.Album) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO albums (id, owner_id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		album.ID,
		album.OwnerID,
		album.Name,
		album.Description,
		album.CreatedAt,
		album.UpdatedAt,
	)
	if err != nil {
		if constraintCode(err) != 0 {
			return apperror.Conflict("album", album.ID)
		}
		return fmt.Errorf("sqlite: creating album: %w", apperror.Unavailable("database", err))
	}

	if album.SharedWith == nil {
		album.SharedWith = []string{}
	}
	return nil
}

// GetAlbum retrieves one album together with its share list.
func (db *DB) GetAlbum(ctx context.Context, id string) (*model.Album, error) {
	var a model.Album

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, owner_id, name, description, created_at, updated_at
		 FROM albums WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("album", id)
		}
		return nil, fmt.Errorf("sqlite: getting album %s: %w", id, apperror.Unavailable("database", err))
	}

	shares, err := db.sharesFor(ctx,
		`SELECT album_id, email FROM album_shares WHERE album_id = ? ORDER BY added_at, email`, id)
	if err != nil {
		return nil, err
	}
	a.SharedWith = shares[a.ID]
	if a.SharedWith == nil {
		a.SharedWith = []string{}
	}

	return &a, nil
}

// ListAlbumsFor returns every album owned by userID or shared with email.
//
// Two queries instead of one big join: the first picks the albums, the second
// loads all of their share lists at once (no N+1 per album).
func (db *DB) ListAlbumsFor(ctx context.Context, userID, email string) ([]model.Album, error) {
	const visible = `SELECT id FROM albums WHERE owner_id = ?
		UNION
		SELECT album_id FROM album_shares WHERE email = ?`

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, owner_id, name, description, created_at, updated_at
		 FROM albums
		 WHERE id IN (`+visible+`)
		 ORDER BY created_at DESC, id`,
		userID, email,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing albums: %w", apperror.Unavailable("database", err))
	}
	defer rows.Close()

	albums := make([]model.Album, 0)
	for rows.Next() {
		var a model.Album
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning album row: %w", apperror.Unavailable("database", err))
		}
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating albums: %w", apperror.Unavailable("database", err))
	}

	shares, err := db.sharesFor(ctx,
		`SELECT album_id, email FROM album_shares
		 WHERE album_id IN (`+visible+`)
		 ORDER BY added_at, email`,
		userID, email,
	)
	if err != nil {
		return nil, err
	}
	for i := range albums {
		albums[i].SharedWith = shares[albums[i].ID]
		if albums[i].SharedWith == nil {
			albums[i].SharedWith = []string{}
		}
	}

	return albums, nil
}

func (db *DB) sharesFor(ctx context.Context, query string, args ...any) (map[string][]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing album shares: %w", apperror.Unavailable("database", err))
	}
	defer rows.Close()

	shares := make(map[string][]string)
	for rows.Next() {
		var albumID, email string
		if err := rows.Scan(&albumID, &email); err != nil {
			return nil, fmt.Errorf("sqlite: scanning share row: %w", apperror.Unavailable("database", err))
		}
		shares[albumID] = append(shares[albumID], email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating shares: %w", apperror.Unavailable("database", err))
	}

	return shares, nil
}

// UpdateAlbum writes the album's name and description. owner_id is never
// part of the UPDATE: ownership is fixed at creation.
func (db *DB) UpdateAlbum(ctx context.Context, album *model.Album) error {
	album.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE albums SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		album.Name,
		album.Description,
		album.UpdatedAt,
		album.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating album %s: %w", album.ID, apperror.Unavailable("database", err))
	}

	return checkAffected(result, "album", album.ID)
}

// AddAlbumShares unions emails into the share list.
//
// The (album_id, email) primary key plus INSERT OR IGNORE gives set semantics
// in the database itself, so two concurrent share calls can never produce a
// duplicate or lose each other's additions.
func (db *DB) AddAlbumShares(ctx context.Context, albumID string, emails []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning share tx: %w", apperror.Unavailable("database", err))
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `UPDATE albums SET updated_at = ? WHERE id = ?`, now, albumID)
	if err != nil {
		return fmt.Errorf("sqlite: touching album %s: %w", albumID, apperror.Unavailable("database", err))
	}
	if err := checkAffected(result, "album", albumID); err != nil {
		return err
	}

	for _, email := range emails {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO album_shares (album_id, email, added_at) VALUES (?, ?, ?)`,
			albumID, email, now,
		); err != nil {
			return fmt.Errorf("sqlite: sharing album %s: %w", albumID, apperror.Unavailable("database", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing shares: %w", apperror.Unavailable("database", err))
	}
	return nil
}

// DeleteAlbum removes the album row; its share list goes with it.
//
// If images still reference the album the foreign key rejects the DELETE and
// apperror.ErrConflict is returned: the caller must delete images first.
func (db *DB) DeleteAlbum(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	if err != nil {
		if constraintCode(err) == 0 {
			return fmt.Errorf("sqlite: deleting album %s: %w", id, apperror.Unavailable("database", err))
		}
		return apperror.Conflict("album", id)
	}

	return checkAffected(result, "album", id)
}
