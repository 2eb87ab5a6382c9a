package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
)

var _ repository.ImageRepository = (*ImageRepository)(nil)

const imageColumns = `id, album_id, name, image_url, tags, person, is_favorite, comments, size, uploaded_at`

type ImageRepository struct {
	db *Connection
}

func NewImageRepository(db *Connection) *ImageRepository {
	return &ImageRepository{
		db: db,
	}
}

// CreateImage inserts an image record. A foreign-key failure means the album
// is gone and is reported as NotFound.
func (r *ImageRepository) CreateImage(ctx context.Context, image *model.Image) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO images (`+imageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		image.ID, image.AlbumID, image.Name, image.ImageURL,
		nonNil(image.Tags), image.Person, image.IsFavorite, nonNil(image.Comments),
		image.Size, image.UploadedAt,
	)
	if err != nil {
		switch sqlState(err) {
		case codeForeignKeyViolation:
			return apperror.NotFound("album", image.AlbumID)
		case codeUniqueViolation:
			return apperror.Conflict("image", image.ID)
		}
		return unavailable("creating image", err)
	}
	return nil
}

func (r *ImageRepository) GetImage(ctx context.Context, id string) (*model.Image, error) {
	row := r.db.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1`, id)

	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("image", id)
		}
		return nil, unavailable("getting image", err)
	}
	return img, nil
}

// ListImagesByAlbum returns the album's images, oldest upload first.
func (r *ImageRepository) ListImagesByAlbum(ctx context.Context, albumID string) ([]model.Image, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+imageColumns+` FROM images WHERE album_id = $1 ORDER BY uploaded_at, id`, albumID)
	if err != nil {
		return nil, unavailable("listing images", err)
	}
	defer rows.Close()

	images := make([]model.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, unavailable("scanning image", err)
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating images", err)
	}
	return images, nil
}

func (r *ImageRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	return r.updateImage(ctx, id, `UPDATE images SET is_favorite = $2 WHERE id = $1`, favorite)
}

func (r *ImageRepository) SetTags(ctx context.Context, id string, tags []string) error {
	return r.updateImage(ctx, id, `UPDATE images SET tags = $2 WHERE id = $1`, nonNil(tags))
}

func (r *ImageRepository) SetPerson(ctx context.Context, id string, person string) error {
	return r.updateImage(ctx, id, `UPDATE images SET person = $2 WHERE id = $1`, person)
}

// AppendComment extends the array server-side, so concurrent comments are
// never lost.
func (r *ImageRepository) AppendComment(ctx context.Context, id string, comment string) error {
	return r.updateImage(ctx, id, `UPDATE images SET comments = array_append(comments, $2) WHERE id = $1`, comment)
}

func (r *ImageRepository) updateImage(ctx context.Context, id, query string, arg any) error {
	tag, err := r.db.Exec(ctx, query, id, arg)
	if err != nil {
		return unavailable("updating image", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("image", id)
	}
	return nil
}

func (r *ImageRepository) DeleteImage(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return unavailable("deleting image", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("image", id)
	}
	return nil
}

func (r *ImageRepository) DeleteImagesByAlbum(ctx context.Context, albumID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE album_id = $1`, albumID)
	if err != nil {
		return 0, unavailable("deleting album images", err)
	}
	return tag.RowsAffected(), nil
}

func scanImage(row pgx.Row) (*model.Image, error) {
	var img model.Image
	err := row.Scan(
		&img.ID, &img.AlbumID, &img.Name, &img.ImageURL,
		&img.Tags, &img.Person, &img.IsFavorite, &img.Comments,
		&img.Size, &img.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	img.Tags = nonNil(img.Tags)
	img.Comments = nonNil(img.Comments)
	return &img, nil
}
