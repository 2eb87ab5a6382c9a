package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sqlite3 "modernc.org/sqlite/lib"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
)

// Tags and comments are stored as JSON arrays in TEXT columns. SQLite's
// built-in JSON functions let AppendComment extend the array in place.

const imageColumns = `id, album_id, name, image_url, tags, person, is_favorite, comments, size, uploaded_at`

// CreateImage inserts an image record.
//
// A foreign-key failure means the parent album vanished between validation
// and recording; it is reported as the album being NotFound.
func (db *DB) CreateImage(ctx context.Context, image *model.Image) error {
	tags, err := encodeList(image.Tags)
	if err != nil {
		return err
	}
	comments, err := encodeList(image.Comments)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO images (`+imageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		image.ID,
		image.AlbumID,
		image.Name,
		image.ImageURL,
		tags,
		image.Person,
		image.IsFavorite,
		comments,
		image.Size,
		image.UploadedAt,
	)
	if err != nil {
		switch constraintCode(err) {
		case 0:
			return fmt.Errorf("sqlite: creating image: %w", apperror.Unavailable("database", err))
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return apperror.NotFound("album", image.AlbumID)
		default:
			return apperror.Conflict("image", image.ID)
		}
	}

	return nil
}

// GetImage retrieves a single image by its ID.
func (db *DB) GetImage(ctx context.Context, id string) (*model.Image, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE id = ?`, id)

	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("image", id)
		}
		return nil, fmt.Errorf("sqlite: getting image %s: %w", id, apperror.Unavailable("database", err))
	}

	return img, nil
}

// ListImagesByAlbum returns every image in an album, oldest upload first.
func (db *DB) ListImagesByAlbum(ctx context.Context, albumID string) ([]model.Image, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE album_id = ? ORDER BY uploaded_at, id`,
		albumID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing images: %w", apperror.Unavailable("database", err))
	}
	defer rows.Close()

	images := make([]model.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning image row: %w", apperror.Unavailable("database", err))
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating images: %w", apperror.Unavailable("database", err))
	}

	return images, nil
}

func (db *DB) SetFavorite(ctx context.Context, id string, favorite bool) error {
	return db.updateImage(ctx, id, `UPDATE images SET is_favorite = ? WHERE id = ?`, favorite, id)
}

// SetTags replaces the whole tag list.
func (db *DB) SetTags(ctx context.Context, id string, tags []string) error {
	encoded, err := encodeList(tags)
	if err != nil {
		return err
	}
	return db.updateImage(ctx, id, `UPDATE images SET tags = ? WHERE id = ?`, encoded, id)
}

func (db *DB) SetPerson(ctx context.Context, id string, person string) error {
	return db.updateImage(ctx, id, `UPDATE images SET person = ? WHERE id = ?`, person, id)
}

// AppendComment pushes one comment onto the end of the JSON array.
// json_insert with the '$[#]' path appends, so there is no read-modify-write.
func (db *DB) AppendComment(ctx context.Context, id string, comment string) error {
	return db.updateImage(ctx, id,
		`UPDATE images SET comments = json_insert(comments, '$[#]', ?) WHERE id = ?`, comment, id)
}

func (db *DB) updateImage(ctx context.Context, id, query string, args ...any) error {
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: updating image %s: %w", id, apperror.Unavailable("database", err))
	}
	return checkAffected(result, "image", id)
}

func (db *DB) DeleteImage(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting image %s: %w", id, apperror.Unavailable("database", err))
	}
	return checkAffected(result, "image", id)
}

// DeleteImagesByAlbum removes all images of an album. Zero rows is not an
// error: an empty album is a valid cascade target.
func (db *DB) DeleteImagesByAlbum(ctx context.Context, albumID string) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM images WHERE album_id = ?`, albumID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting images of album %s: %w", albumID, apperror.Unavailable("database", err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperror.Unavailable("database", err)
	}
	return n, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*model.Image, error) {
	var (
		img      model.Image
		tags     string
		comments string
	)
	if err := row.Scan(
		&img.ID, &img.AlbumID, &img.Name, &img.ImageURL, &tags,
		&img.Person, &img.IsFavorite, &comments, &img.Size, &img.UploadedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &img.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if err := json.Unmarshal([]byte(comments), &img.Comments); err != nil {
		return nil, fmt.Errorf("decoding comments: %w", err)
	}
	if img.Tags == nil {
		img.Tags = []string{}
	}
	if img.Comments == nil {
		img.Comments = []string{}
	}
	return &img, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding list: %w", err)
	}
	return string(b), nil
}
