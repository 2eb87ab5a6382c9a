package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
)

var _ repository.AlbumRepository = (*AlbumRepository)(nil)

// albumSelect loads albums with their share list folded into one TEXT[].
const albumSelect = `
	SELECT a.id, a.owner_id, a.name, a.description, a.created_at, a.updated_at,
	       COALESCE(array_agg(s.email ORDER BY s.added_at, s.email)
	                FILTER (WHERE s.email IS NOT NULL), '{}')
	FROM albums a
	LEFT JOIN album_shares s ON s.album_id = a.id`

type AlbumRepository struct {
	db *Connection
}

func NewAlbumRepository(db *Connection) *AlbumRepository {
	return &AlbumRepository{
		db: db,
	}
}

func (r *AlbumRepository) CreateAlbum(ctx context.Context, album *model.Album) error {
	query := `INSERT INTO albums (id, owner_id, name, description, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		album.ID, album.OwnerID, album.Name, album.Description, album.CreatedAt, album.UpdatedAt,
	)
	if err != nil {
		switch sqlState(err) {
		case codeUniqueViolation:
			return apperror.Conflict("album", album.ID)
		case codeForeignKeyViolation:
			return apperror.NotFound("user", album.OwnerID)
		}
		return unavailable("creating album", err)
	}

	album.SharedWith = nonNil(album.SharedWith)
	return nil
}

func (r *AlbumRepository) GetAlbum(ctx context.Context, id string) (*model.Album, error) {
	row := r.db.QueryRow(ctx, albumSelect+` WHERE a.id = $1 GROUP BY a.id`, id)

	album, err := scanAlbum(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("album", id)
		}
		return nil, unavailable("getting album", err)
	}
	return album, nil
}

// ListAlbumsFor returns albums owned by userID or shared with email, newest
// first.
func (r *AlbumRepository) ListAlbumsFor(ctx context.Context, userID, email string) ([]model.Album, error) {
	query := albumSelect + `
	WHERE a.owner_id = $1
	   OR EXISTS (SELECT 1 FROM album_shares x WHERE x.album_id = a.id AND x.email = $2)
	GROUP BY a.id
	ORDER BY a.created_at DESC, a.id`

	rows, err := r.db.Query(ctx, query, userID, email)
	if err != nil {
		return nil, unavailable("listing albums", err)
	}
	defer rows.Close()

	albums := make([]model.Album, 0)
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, unavailable("scanning album", err)
		}
		albums = append(albums, *album)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating albums", err)
	}

	return albums, nil
}

func (r *AlbumRepository) UpdateAlbum(ctx context.Context, album *model.Album) error {
	album.UpdatedAt = time.Now().UTC()

	tag, err := r.db.Exec(ctx,
		`UPDATE albums SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		album.Name, album.Description, album.UpdatedAt, album.ID,
	)
	if err != nil {
		return unavailable("updating album", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("album", album.ID)
	}
	return nil
}

// AddAlbumShares unions emails into the share list in one transaction.
// The (album_id, email) primary key with ON CONFLICT DO NOTHING keeps the
// list a set under concurrent calls.
func (r *AlbumRepository) AddAlbumShares(ctx context.Context, albumID string, emails []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return unavailable("beginning share tx", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `UPDATE albums SET updated_at = $1 WHERE id = $2`, now, albumID)
	if err != nil {
		return unavailable("touching album", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("album", albumID)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO album_shares (album_id, email, added_at)
		 SELECT $1, e, $3 FROM unnest($2::text[]) AS e
		 ON CONFLICT (album_id, email) DO NOTHING`,
		albumID, nonNil(emails), now,
	)
	if err != nil {
		return unavailable("sharing album", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("committing shares", err)
	}
	return nil
}

// DeleteAlbum removes the album and its share list. Remaining images make
// the foreign key reject it with apperror.ErrConflict.
func (r *AlbumRepository) DeleteAlbum(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM albums WHERE id = $1`, id)
	if err != nil {
		if sqlState(err) == codeForeignKeyViolation {
			return apperror.Conflict("album", id)
		}
		return unavailable("deleting album", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("album", id)
	}
	return nil
}

func scanAlbum(row pgx.Row) (*model.Album, error) {
	var a model.Album
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt, &a.SharedWith)
	if err != nil {
		return nil, err
	}
	a.SharedWith = nonNil(a.SharedWith)
	return &a, nil
}
