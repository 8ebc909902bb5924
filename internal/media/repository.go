package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository persists the quota ledger: quota rows, upload reservations, and
// committed assets. Every mutation that touches an account's counters runs in
// a transaction whose guarded single-row UPDATE is the per-account
// serialization point; no global locks.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a ledger repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const quotaColumns = `account_id, quota_bytes, committed_bytes, reserved_bytes, reconciled_at, created_at, updated_at`

func scanQuota(row pgx.Row) (QuotaAccount, error) {
	var q QuotaAccount
	err := row.Scan(&q.AccountID, &q.QuotaBytes, &q.CommittedBytes, &q.ReservedBytes, &q.ReconciledAt, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

// EnsureQuota returns the account's quota row, creating it lazily with the
// default limit on first use.
func (r *Repository) EnsureQuota(ctx context.Context, accountID uuid.UUID, defaultQuotaBytes int64) (QuotaAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, `
INSERT INTO quota_accounts (account_id, quota_bytes)
VALUES ($1, $2)
ON CONFLICT (account_id) DO NOTHING;`, accountID, defaultQuotaBytes); err != nil {
		return QuotaAccount{}, fmt.Errorf("ensure quota row: %w", err)
	}

	q, err := scanQuota(r.pool.QueryRow(ctx,
		`SELECT `+quotaColumns+` FROM quota_accounts WHERE account_id = $1;`, accountID))
	if err != nil {
		return QuotaAccount{}, fmt.Errorf("get quota row: %w", err)
	}
	return q, nil
}

// ReserveCapacity atomically checks remaining capacity and records a pending
// reservation. The UPDATE's guard condition rejects the reservation when
// committed + reserved + estimate would exceed the limit, so two concurrent
// reservations can never overcommit the same account.
func (r *Repository) ReserveCapacity(ctx context.Context, res Reservation, defaultQuotaBytes int64) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO quota_accounts (account_id, quota_bytes)
VALUES ($1, $2)
ON CONFLICT (account_id) DO NOTHING;`, res.AccountID, defaultQuotaBytes); err != nil {
		return fmt.Errorf("ensure quota row: %w", err)
	}

	tag, err := tx.Exec(ctx, `
UPDATE quota_accounts
SET reserved_bytes = reserved_bytes + $2,
    updated_at = NOW()
WHERE account_id = $1
  AND committed_bytes + reserved_bytes + $2 <= quota_bytes;`, res.AccountID, res.EstimatedBytes)
	if err != nil {
		return fmt.Errorf("reserve capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO upload_reservations (id, account_id, album_id, object_path, content_type, estimated_bytes, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8);`,
		res.ID, res.AccountID, res.AlbumID, res.ObjectPath, res.ContentType, res.EstimatedBytes, res.CreatedAt, res.ExpiresAt); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reserve: %w", err)
	}
	return nil
}

const reservationColumns = `id, account_id, album_id, object_path, content_type, estimated_bytes, status, asset_id, created_at, expires_at`

func scanReservation(row pgx.Row) (Reservation, error) {
	var res Reservation
	err := row.Scan(&res.ID, &res.AccountID, &res.AlbumID, &res.ObjectPath, &res.ContentType, &res.EstimatedBytes, &res.Status, &res.AssetID, &res.CreatedAt, &res.ExpiresAt)
	return res, err
}

// GetReservation fetches a reservation by id.
func (r *Repository) GetReservation(ctx context.Context, reservationID uuid.UUID) (Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	res, err := scanReservation(r.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM upload_reservations WHERE id = $1;`, reservationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrReservationNotFound
		}
		return Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// CommitReservation converts a pending reservation into a committed asset:
// reserved usage drops by the estimate, committed usage grows by the actual
// size, the asset row is created, and the reservation is marked committed.
// Calling it again for an already-committed reservation returns the stored
// asset without touching the counters.
func (r *Repository) CommitReservation(ctx context.Context, reservationID uuid.UUID, asset Asset, now time.Time) (Asset, QuotaAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Asset{}, QuotaAccount{}, fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := scanReservation(tx.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM upload_reservations WHERE id = $1 FOR UPDATE;`, reservationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, QuotaAccount{}, ErrReservationNotFound
		}
		return Asset{}, QuotaAccount{}, fmt.Errorf("lock reservation: %w", err)
	}

	switch res.Status {
	case ReservationCommitted:
		if res.AssetID == nil {
			return Asset{}, QuotaAccount{}, fmt.Errorf("committed reservation %s has no asset", res.ID)
		}
		stored, err := r.getAssetTx(ctx, tx, *res.AssetID)
		if err != nil {
			return Asset{}, QuotaAccount{}, err
		}
		account, err := scanQuota(tx.QueryRow(ctx,
			`SELECT `+quotaColumns+` FROM quota_accounts WHERE account_id = $1;`, res.AccountID))
		if err != nil {
			return Asset{}, QuotaAccount{}, fmt.Errorf("get quota row: %w", err)
		}
		return stored, account, tx.Commit(ctx)
	case ReservationReleased:
		return Asset{}, QuotaAccount{}, ErrReservationExpired
	}

	if !res.ExpiresAt.After(now) {
		return Asset{}, QuotaAccount{}, ErrReservationExpired
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO media_assets (id, account_id, album_id, object_path, content_type, size_bytes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`,
		asset.ID, res.AccountID, res.AlbumID, res.ObjectPath, asset.ContentType, asset.SizeBytes, asset.CreatedAt); err != nil {
		return Asset{}, QuotaAccount{}, fmt.Errorf("insert asset: %w", err)
	}

	account, err := scanQuota(tx.QueryRow(ctx, `
UPDATE quota_accounts
SET reserved_bytes = GREATEST(reserved_bytes - $2, 0),
    committed_bytes = committed_bytes + $3,
    updated_at = NOW()
WHERE account_id = $1
RETURNING `+quotaColumns+`;`, res.AccountID, res.EstimatedBytes, asset.SizeBytes))
	if err != nil {
		return Asset{}, QuotaAccount{}, fmt.Errorf("swap reserved for committed: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE upload_reservations
SET status = 'committed', asset_id = $2
WHERE id = $1;`, reservationID, asset.ID); err != nil {
		return Asset{}, QuotaAccount{}, fmt.Errorf("mark reservation committed: %w", err)
	}

	stored := asset
	stored.AccountID = res.AccountID
	stored.AlbumID = res.AlbumID
	stored.ObjectPath = res.ObjectPath

	if err := tx.Commit(ctx); err != nil {
		return Asset{}, QuotaAccount{}, fmt.Errorf("commit upload: %w", err)
	}
	return stored, account, nil
}

// ReleaseReservation moves a pending reservation to released and returns the
// reserved bytes to the account. No-op for committed or already-released
// reservations; unknown ids return ErrReservationNotFound.
func (r *Repository) ReleaseReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin release: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := scanReservation(tx.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM upload_reservations WHERE id = $1 FOR UPDATE;`, reservationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrReservationNotFound
		}
		return false, fmt.Errorf("lock reservation: %w", err)
	}

	if res.Status != ReservationPending {
		return false, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE upload_reservations SET status = 'released' WHERE id = $1;`, reservationID); err != nil {
		return false, fmt.Errorf("mark reservation released: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE quota_accounts
SET reserved_bytes = GREATEST(reserved_bytes - $2, 0),
    updated_at = NOW()
WHERE account_id = $1;`, res.AccountID, res.EstimatedBytes); err != nil {
		return false, fmt.Errorf("return reserved bytes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit release: %w", err)
	}
	return true, nil
}

const assetColumns = `id, account_id, album_id, object_path, content_type, size_bytes, created_at`

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.AccountID, &a.AlbumID, &a.ObjectPath, &a.ContentType, &a.SizeBytes, &a.CreatedAt)
	return a, err
}

func (r *Repository) getAssetTx(ctx context.Context, tx pgx.Tx, assetID uuid.UUID) (Asset, error) {
	a, err := scanAsset(tx.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE id = $1;`, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrAssetNotFound
		}
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

// GetAsset fetches an asset ensuring ownership.
func (r *Repository) GetAsset(ctx context.Context, accountID, assetID uuid.UUID) (Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	a, err := scanAsset(r.pool.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE id = $1 AND account_id = $2;`, assetID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrAssetNotFound
		}
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

// DeleteAsset removes the asset record and returns the freed bytes to the
// account in one transaction, so the ledger and the asset set never diverge
// across a crash. The object itself is removed by the caller afterwards.
func (r *Repository) DeleteAsset(ctx context.Context, accountID, assetID uuid.UUID) (Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Asset{}, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	a, err := scanAsset(tx.QueryRow(ctx, `
DELETE FROM media_assets
WHERE id = $1 AND account_id = $2
RETURNING `+assetColumns+`;`, assetID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrAssetNotFound
		}
		return Asset{}, fmt.Errorf("delete asset: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE quota_accounts
SET committed_bytes = GREATEST(committed_bytes - $2, 0),
    updated_at = NOW()
WHERE account_id = $1;`, accountID, a.SizeBytes); err != nil {
		return Asset{}, fmt.Errorf("return committed bytes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Asset{}, fmt.Errorf("commit delete: %w", err)
	}
	return a, nil
}

// ListAlbumAssets returns the committed assets of one album.
func (r *Repository) ListAlbumAssets(ctx context.Context, accountID, albumID uuid.UUID) ([]Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
SELECT `+assetColumns+`
FROM media_assets
WHERE account_id = $1 AND album_id = $2
ORDER BY created_at DESC;`, accountID, albumID)
	if err != nil {
		return nil, fmt.Errorf("list album assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// ListExpired returns ids of pending reservations whose upload window has
// elapsed, oldest first.
func (r *Repository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
SELECT id
FROM upload_reservations
WHERE status = 'pending' AND expires_at <= $1
ORDER BY expires_at
LIMIT $2;`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation ids: %w", err)
	}
	return ids, nil
}

// ListQuotaAccountIDs returns every account with a ledger row.
func (r *Repository) ListQuotaAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT account_id FROM quota_accounts ORDER BY account_id;`)
	if err != nil {
		return nil, fmt.Errorf("list quota accounts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account ids: %w", err)
	}
	return ids, nil
}

// RecomputeCommitted recomputes an account's committed usage from its asset
// records and overwrites the stored counter when they differ. Reserved usage
// is never touched; it is governed solely by the reservation lifecycle. The
// aggregate and the overwrite run in one transaction, so the snapshot stays
// consistent under concurrent commits.
func (r *Repository) RecomputeCommitted(ctx context.Context, accountID uuid.UUID) (corrected bool, before, after int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, 0, 0, fmt.Errorf("begin reconcile: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`SELECT committed_bytes FROM quota_accounts WHERE account_id = $1 FOR UPDATE;`, accountID).Scan(&before); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, 0, nil
		}
		return false, 0, 0, fmt.Errorf("lock quota row: %w", err)
	}

	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(size_bytes), 0) FROM media_assets WHERE account_id = $1;`, accountID).Scan(&after); err != nil {
		return false, 0, 0, fmt.Errorf("sum asset sizes: %w", err)
	}

	if before == after {
		if _, err := tx.Exec(ctx,
			`UPDATE quota_accounts SET reconciled_at = NOW() WHERE account_id = $1;`, accountID); err != nil {
			return false, 0, 0, fmt.Errorf("touch reconciled_at: %w", err)
		}
		return false, before, after, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
UPDATE quota_accounts
SET committed_bytes = $2,
    reconciled_at = NOW(),
    updated_at = NOW()
WHERE account_id = $1;`, accountID, after); err != nil {
		return false, 0, 0, fmt.Errorf("overwrite committed bytes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, 0, fmt.Errorf("commit reconcile: %w", err)
	}
	return true, before, after, nil
}
