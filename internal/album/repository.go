package album

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

// Repository allows access to album persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs an album repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new album for the owner.
func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, title string, description *string) (Album, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	title = strings.TrimSpace(title)
	albumID := uuid.New()

	query := `
INSERT INTO albums (id, owner_id, title, description)
VALUES ($1, $2, $3, $4)
RETURNING id, owner_id, title, description, created_at, updated_at;`

	row := r.pool.QueryRow(ctx, query, albumID, ownerID, title, description)

	var album Album
	if err := row.Scan(&album.ID, &album.OwnerID, &album.Title, &album.Description, &album.CreatedAt, &album.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Album{}, ErrAlbumTitleExists
		}
		return Album{}, fmt.Errorf("create album: %w", err)
	}

	return album, nil
}

// List returns all albums owned by the account.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID) ([]Album, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT id, owner_id, title, description, created_at, updated_at
FROM albums
WHERE owner_id = $1
ORDER BY created_at DESC;`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		var album Album
		if err := rows.Scan(&album.ID, &album.OwnerID, &album.Title, &album.Description, &album.CreatedAt, &album.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

// Get fetches a single album ensuring ownership.
func (r *Repository) Get(ctx context.Context, ownerID, albumID uuid.UUID) (Album, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT id, owner_id, title, description, created_at, updated_at
FROM albums
WHERE id = $1 AND owner_id = $2;`

	var album Album
	err := r.pool.QueryRow(ctx, query, albumID, ownerID).Scan(
		&album.ID,
		&album.OwnerID,
		&album.Title,
		&album.Description,
		&album.CreatedAt,
		&album.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Album{}, ErrAlbumNotFound
		}
		return Album{}, fmt.Errorf("get album: %w", err)
	}

	return album, nil
}

// Delete removes an album owned by the account.
func (r *Repository) Delete(ctx context.Context, ownerID, albumID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM albums WHERE id = $1 AND owner_id = $2;`, albumID, ownerID)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return ErrAlbumNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
