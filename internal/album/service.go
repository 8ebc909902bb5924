package album

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type repository interface {
	Create(ctx context.Context, ownerID uuid.UUID, title string, description *string) (Album, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]Album, error)
	Get(ctx context.Context, ownerID, albumID uuid.UUID) (Album, error)
	Delete(ctx context.Context, ownerID, albumID uuid.UUID) error
}

// mediaPurger removes every committed asset of an album through the quota
// ledger, keeping the owner's usage counter in step with the deletions.
type mediaPurger interface {
	PurgeAlbum(ctx context.Context, accountID, albumID uuid.UUID) error
}

// Service orchestrates album operations.
type Service struct {
	repo  repository
	media mediaPurger
}

// NewService constructs an album service.
func NewService(repo repository, media mediaPurger) *Service {
	return &Service{
		repo:  repo,
		media: media,
	}
}

// CreateAlbum creates a new album for the owner.
func (s *Service) CreateAlbum(ctx context.Context, ownerID uuid.UUID, title string, description *string) (Album, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Album{}, fmt.Errorf("album title required")
	}
	return s.repo.Create(ctx, ownerID, title, description)
}

// ListAlbums returns the account's albums.
func (s *Service) ListAlbums(ctx context.Context, ownerID uuid.UUID) ([]Album, error) {
	return s.repo.List(ctx, ownerID)
}

// GetAlbum returns an album ensuring ownership.
func (s *Service) GetAlbum(ctx context.Context, ownerID, albumID uuid.UUID) (Album, error) {
	return s.repo.Get(ctx, ownerID, albumID)
}

// DeleteAlbum removes an album after purging its media through the ledger, so
// the owner's committed usage reflects the freed space.
func (s *Service) DeleteAlbum(ctx context.Context, ownerID, albumID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, ownerID, albumID); err != nil {
		return err
	}

	if s.media != nil {
		if err := s.media.PurgeAlbum(ctx, ownerID, albumID); err != nil {
			return fmt.Errorf("purge album media: %w", err)
		}
	}

	return s.repo.Delete(ctx, ownerID, albumID)
}
