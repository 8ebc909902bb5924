package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/nartay/alumbook/internal/album"
	"github.com/nartay/alumbook/internal/config"
	"github.com/nartay/alumbook/internal/metrics"
	"github.com/nartay/alumbook/internal/presigned"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	statTimeout    = 10 * time.Second
	sweepBatchSize = 200
	maxExtLength   = 12
)

// ledgerStore abstracts the durable ledger.
type ledgerStore interface {
	EnsureQuota(ctx context.Context, accountID uuid.UUID, defaultQuotaBytes int64) (QuotaAccount, error)
	ReserveCapacity(ctx context.Context, res Reservation, defaultQuotaBytes int64) error
	GetReservation(ctx context.Context, reservationID uuid.UUID) (Reservation, error)
	CommitReservation(ctx context.Context, reservationID uuid.UUID, asset Asset, now time.Time) (Asset, QuotaAccount, error)
	ReleaseReservation(ctx context.Context, reservationID uuid.UUID) (bool, error)
	GetAsset(ctx context.Context, accountID, assetID uuid.UUID) (Asset, error)
	DeleteAsset(ctx context.Context, accountID, assetID uuid.UUID) (Asset, error)
	ListAlbumAssets(ctx context.Context, accountID, albumID uuid.UUID) ([]Asset, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	ListQuotaAccountIDs(ctx context.Context) ([]uuid.UUID, error)
	RecomputeCommitted(ctx context.Context, accountID uuid.UUID) (corrected bool, before, after int64, err error)
}

// urlSigner is the object-store surface the ledger needs: signing, existence,
// size, and idempotent deletion.
type urlSigner interface {
	IssueUploadURL(ctx context.Context, accountID uuid.UUID, objectPath string) (string, time.Time, error)
	IssueReadURL(ctx context.Context, accountID uuid.UUID, objectPath string) (string, time.Time, error)
	StatObject(ctx context.Context, objectPath string) (int64, error)
	RemoveObject(ctx context.Context, objectPath string) error
}

// albumStore verifies album ownership for reservation targets.
type albumStore interface {
	Get(ctx context.Context, ownerID, albumID uuid.UUID) (album.Album, error)
}

// Service is the quota account ledger. All quota state transitions go through
// it; the HTTP layer, the expiry sweep, and the reconciler never touch the
// storage records directly.
type Service struct {
	repo    ledgerStore
	signer  urlSigner
	albums  albumStore
	cfg     config.UploadConfig
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo ledgerStore, signer urlSigner, albums albumStore, cfg config.UploadConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		signer:  signer,
		albums:  albums,
		cfg:     cfg,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// ReserveResult is what a successful reservation hands back to the client.
type ReserveResult struct {
	Reservation        Reservation
	UploadURL          string
	UploadURLExpiresAt time.Time
}

// Quota returns the account's usage summary, creating the ledger row lazily.
func (s *Service) Quota(ctx context.Context, accountID uuid.UUID) (QuotaInfo, error) {
	q, err := s.repo.EnsureQuota(ctx, accountID, s.cfg.DefaultQuotaBytes)
	if err != nil {
		return QuotaInfo{}, err
	}
	return QuotaInfo{
		QuotaBytes:     q.QuotaBytes,
		UsedBytes:      q.CommittedBytes,
		ReservedBytes:  q.ReservedBytes,
		RemainingBytes: q.RemainingBytes(),
	}, nil
}

// Reserve claims capacity for one upload and returns a presigned write URL.
// The capacity check and the reserved-bytes increment are a single atomic
// step; on any later failure the claim is released again.
func (s *Service) Reserve(ctx context.Context, accountID, albumID uuid.UUID, fileName, contentType string, estimatedBytes int64) (ReserveResult, error) {
	if estimatedBytes <= 0 {
		return ReserveResult{}, ErrInvalidEstimate
	}
	if s.cfg.MaxUploadBytes > 0 && estimatedBytes > s.cfg.MaxUploadBytes {
		return ReserveResult{}, ErrUploadTooLarge
	}

	if _, err := s.albums.Get(ctx, accountID, albumID); err != nil {
		return ReserveResult{}, translateAlbumError(err)
	}

	now := s.nowFunc()
	res := Reservation{
		ID:             uuid.New(),
		AccountID:      accountID,
		AlbumID:        albumID,
		ContentType:    contentType,
		EstimatedBytes: estimatedBytes,
		Status:         ReservationPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.UploadWindow),
	}
	res.ObjectPath = fmt.Sprintf("%salbums/%s/%s%s",
		presigned.AccountNamespace(accountID), albumID, res.ID, objectExt(fileName))

	if err := s.repo.ReserveCapacity(ctx, res, s.cfg.DefaultQuotaBytes); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			metrics.ReservationsTotal.WithLabelValues("quota_exceeded").Inc()
			return ReserveResult{}, ErrQuotaExceeded
		}
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
		return ReserveResult{}, fmt.Errorf("reserve capacity: %w", err)
	}

	uploadURL, urlExpiry, err := s.signer.IssueUploadURL(ctx, accountID, res.ObjectPath)
	if err != nil {
		// Undo the claim; the client never received a way to upload.
		if _, releaseErr := s.repo.ReleaseReservation(ctx, res.ID); releaseErr != nil {
			s.logger.Error("failed to release reservation after signing failure",
				zap.String("reservation_id", res.ID.String()), zap.Error(releaseErr))
		}
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
		return ReserveResult{}, fmt.Errorf("issue upload url: %w", err)
	}

	metrics.ReservationsTotal.WithLabelValues("reserved").Inc()
	return ReserveResult{
		Reservation:        res,
		UploadURL:          uploadURL,
		UploadURLExpiresAt: urlExpiry,
	}, nil
}

// Commit finalizes an upload: it verifies the object landed in the store,
// swaps the reserved estimate for the actual stored size, and records the
// asset. Committing an already-committed reservation returns the existing
// asset, so clients may retry the notification safely.
func (s *Service) Commit(ctx context.Context, accountID, reservationID uuid.UUID) (Asset, error) {
	res, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return Asset{}, err
	}
	if res.AccountID != accountID {
		return Asset{}, ErrReservationNotFound
	}

	now := s.nowFunc()
	switch res.Status {
	case ReservationCommitted:
		if res.AssetID == nil {
			return Asset{}, fmt.Errorf("committed reservation %s has no asset", res.ID)
		}
		return s.repo.GetAsset(ctx, accountID, *res.AssetID)
	case ReservationReleased:
		metrics.CommitsTotal.WithLabelValues("expired").Inc()
		return Asset{}, ErrReservationExpired
	}

	if !res.ExpiresAt.After(now) {
		metrics.CommitsTotal.WithLabelValues("expired").Inc()
		return Asset{}, ErrReservationExpired
	}

	statCtx, cancel := context.WithTimeout(ctx, statTimeout)
	actualSize, err := s.signer.StatObject(statCtx, res.ObjectPath)
	cancel()
	if err != nil {
		if errors.Is(err, presigned.ErrObjectMissing) {
			metrics.CommitsTotal.WithLabelValues("object_missing").Inc()
			return Asset{}, ErrObjectNotFound
		}
		metrics.CommitsTotal.WithLabelValues("error").Inc()
		return Asset{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	asset := Asset{
		ID:          uuid.New(),
		AccountID:   res.AccountID,
		AlbumID:     res.AlbumID,
		ObjectPath:  res.ObjectPath,
		ContentType: res.ContentType,
		SizeBytes:   actualSize,
		CreatedAt:   now,
	}

	stored, account, err := s.repo.CommitReservation(ctx, res.ID, asset, now)
	if err != nil {
		if errors.Is(err, ErrReservationExpired) {
			metrics.CommitsTotal.WithLabelValues("expired").Inc()
		} else if !errors.Is(err, ErrReservationNotFound) {
			metrics.CommitsTotal.WithLabelValues("error").Inc()
		}
		return Asset{}, err
	}

	if account.OverQuota() {
		// The object already exists; rejecting now would silently lose the
		// upload. Accept it and surface the overage for reconciliation.
		metrics.OverQuotaCommitsTotal.Inc()
		s.logger.Warn("commit pushed account over quota",
			zap.String("account_id", account.AccountID.String()),
			zap.Int64("quota_bytes", account.QuotaBytes),
			zap.Int64("committed_bytes", account.CommittedBytes),
			zap.Int64("reserved_bytes", account.ReservedBytes),
			zap.Int64("estimated_bytes", res.EstimatedBytes),
			zap.Int64("actual_bytes", actualSize))
	}

	metrics.CommitsTotal.WithLabelValues("committed").Inc()
	return stored, nil
}

// Cancel releases a pending reservation immediately and removes any partial
// upload. Idempotent for committed or already-released reservations.
func (s *Service) Cancel(ctx context.Context, accountID, reservationID uuid.UUID) error {
	res, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.AccountID != accountID {
		return ErrReservationNotFound
	}

	released, err := s.repo.ReleaseReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if released {
		if err := s.signer.RemoveObject(ctx, res.ObjectPath); err != nil {
			s.logger.Warn("failed to remove canceled upload object",
				zap.String("object_path", res.ObjectPath), zap.Error(err))
		}
	}
	return nil
}

// DeleteAsset removes the asset record and its committed bytes from the
// ledger, then deletes the stored object. Object removal is idempotent; a
// crash between the two steps leaves an orphaned object that no longer counts
// toward usage.
func (s *Service) DeleteAsset(ctx context.Context, accountID, assetID uuid.UUID) error {
	asset, err := s.repo.DeleteAsset(ctx, accountID, assetID)
	if err != nil {
		return err
	}

	if err := s.signer.RemoveObject(ctx, asset.ObjectPath); err != nil {
		s.logger.Error("failed to remove deleted asset object",
			zap.String("object_path", asset.ObjectPath), zap.Error(err))
	}
	return nil
}

// ListAlbumMedia returns the album's assets with presigned read URLs.
func (s *Service) ListAlbumMedia(ctx context.Context, accountID, albumID uuid.UUID) ([]MediaItem, error) {
	if _, err := s.albums.Get(ctx, accountID, albumID); err != nil {
		return nil, translateAlbumError(err)
	}

	assets, err := s.repo.ListAlbumAssets(ctx, accountID, albumID)
	if err != nil {
		return nil, err
	}

	items := make([]MediaItem, 0, len(assets))
	for _, a := range assets {
		readURL, expiresAt, err := s.signer.IssueReadURL(ctx, accountID, a.ObjectPath)
		if err != nil {
			return nil, fmt.Errorf("issue read url for %s: %w", a.ID, err)
		}
		items = append(items, MediaItem{
			Asset:                a,
			DownloadURL:          readURL,
			DownloadURLExpiresAt: expiresAt,
		})
	}
	return items, nil
}

// PurgeAlbum deletes every asset of an album through DeleteAsset, so the
// owner's committed usage shrinks with each removal.
func (s *Service) PurgeAlbum(ctx context.Context, accountID, albumID uuid.UUID) error {
	assets, err := s.repo.ListAlbumAssets(ctx, accountID, albumID)
	if err != nil {
		return err
	}
	for _, a := range assets {
		if err := s.DeleteAsset(ctx, accountID, a.ID); err != nil && !errors.Is(err, ErrAssetNotFound) {
			return fmt.Errorf("delete asset %s: %w", a.ID, err)
		}
	}
	return nil
}

// ReleaseExpired releases every pending reservation whose upload window has
// elapsed and returns the number reclaimed. Safe to run concurrently with
// itself and with live traffic: release is idempotent and guarded by the
// reservation's current status.
func (s *Service) ReleaseExpired(ctx context.Context) (int, error) {
	ids, err := s.repo.ListExpired(ctx, s.nowFunc(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		ok, err := s.repo.ReleaseReservation(ctx, id)
		if err != nil {
			if errors.Is(err, ErrReservationNotFound) {
				continue
			}
			return released, fmt.Errorf("release reservation %s: %w", id, err)
		}
		if ok {
			released++
			metrics.ReservationsSweptTotal.Inc()
		}
	}
	return released, nil
}

// Reconcile recomputes committed usage for every account from its asset
// records and corrects drifted counters, returning how many accounts were
// corrected. Per-account failures are logged and skipped, never returned.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	ids, err := s.repo.ListQuotaAccountIDs(ctx)
	if err != nil {
		return 0, err
	}

	corrected := 0
	for _, id := range ids {
		changed, before, after, err := s.repo.RecomputeCommitted(ctx, id)
		if err != nil {
			s.logger.Error("failed to reconcile account",
				zap.String("account_id", id.String()), zap.Error(err))
			continue
		}
		if changed {
			corrected++
			metrics.QuotaCorrectionsTotal.Inc()
			s.logger.Info("corrected committed usage",
				zap.String("account_id", id.String()),
				zap.Int64("before_bytes", before),
				zap.Int64("after_bytes", after))
		}
	}
	return corrected, nil
}

func translateAlbumError(err error) error {
	if errors.Is(err, album.ErrAlbumNotFound) {
		return ErrAlbumNotFound
	}
	return err
}

func objectExt(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" || len(ext) > maxExtLength || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
