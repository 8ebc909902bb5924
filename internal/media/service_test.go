package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nartay/alumbook/internal/album"
	"github.com/nartay/alumbook/internal/config"
	"github.com/nartay/alumbook/internal/metrics"
	"github.com/nartay/alumbook/internal/presigned"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	metrics.InitMetrics()
	m.Run()
}

// fakeLedger mimics the transactional repository in memory. A single mutex
// stands in for row-level locking, so the guarded reserve update keeps its
// check-and-increment atomicity.
type fakeLedger struct {
	mu           sync.Mutex
	quotas       map[uuid.UUID]*QuotaAccount
	reservations map[uuid.UUID]*Reservation
	assets       map[uuid.UUID]Asset
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		quotas:       make(map[uuid.UUID]*QuotaAccount),
		reservations: make(map[uuid.UUID]*Reservation),
		assets:       make(map[uuid.UUID]Asset),
	}
}

func (f *fakeLedger) ensureLocked(accountID uuid.UUID, defaultQuota int64) *QuotaAccount {
	q, ok := f.quotas[accountID]
	if !ok {
		q = &QuotaAccount{AccountID: accountID, QuotaBytes: defaultQuota}
		f.quotas[accountID] = q
	}
	return q
}

func (f *fakeLedger) EnsureQuota(_ context.Context, accountID uuid.UUID, defaultQuota int64) (QuotaAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.ensureLocked(accountID, defaultQuota), nil
}

func (f *fakeLedger) ReserveCapacity(_ context.Context, res Reservation, defaultQuota int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := f.ensureLocked(res.AccountID, defaultQuota)
	if q.CommittedBytes+q.ReservedBytes+res.EstimatedBytes > q.QuotaBytes {
		return ErrQuotaExceeded
	}
	q.ReservedBytes += res.EstimatedBytes
	stored := res
	f.reservations[res.ID] = &stored
	return nil
}

func (f *fakeLedger) GetReservation(_ context.Context, id uuid.UUID) (Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	res, ok := f.reservations[id]
	if !ok {
		return Reservation{}, ErrReservationNotFound
	}
	return *res, nil
}

func (f *fakeLedger) CommitReservation(_ context.Context, id uuid.UUID, asset Asset, now time.Time) (Asset, QuotaAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	res, ok := f.reservations[id]
	if !ok {
		return Asset{}, QuotaAccount{}, ErrReservationNotFound
	}
	q := f.quotas[res.AccountID]

	switch res.Status {
	case ReservationCommitted:
		return f.assets[*res.AssetID], *q, nil
	case ReservationReleased:
		return Asset{}, QuotaAccount{}, ErrReservationExpired
	}
	if !res.ExpiresAt.After(now) {
		return Asset{}, QuotaAccount{}, ErrReservationExpired
	}

	q.ReservedBytes -= res.EstimatedBytes
	if q.ReservedBytes < 0 {
		q.ReservedBytes = 0
	}
	q.CommittedBytes += asset.SizeBytes
	f.assets[asset.ID] = asset
	res.Status = ReservationCommitted
	assetID := asset.ID
	res.AssetID = &assetID
	return asset, *q, nil
}

func (f *fakeLedger) ReleaseReservation(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	res, ok := f.reservations[id]
	if !ok {
		return false, ErrReservationNotFound
	}
	if res.Status != ReservationPending {
		return false, nil
	}

	q := f.quotas[res.AccountID]
	q.ReservedBytes -= res.EstimatedBytes
	if q.ReservedBytes < 0 {
		q.ReservedBytes = 0
	}
	res.Status = ReservationReleased
	return true, nil
}

func (f *fakeLedger) GetAsset(_ context.Context, accountID, assetID uuid.UUID) (Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	asset, ok := f.assets[assetID]
	if !ok || asset.AccountID != accountID {
		return Asset{}, ErrAssetNotFound
	}
	return asset, nil
}

func (f *fakeLedger) DeleteAsset(_ context.Context, accountID, assetID uuid.UUID) (Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	asset, ok := f.assets[assetID]
	if !ok || asset.AccountID != accountID {
		return Asset{}, ErrAssetNotFound
	}
	delete(f.assets, assetID)

	q := f.quotas[accountID]
	q.CommittedBytes -= asset.SizeBytes
	if q.CommittedBytes < 0 {
		q.CommittedBytes = 0
	}
	return asset, nil
}

func (f *fakeLedger) ListAlbumAssets(_ context.Context, accountID, albumID uuid.UUID) ([]Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Asset
	for _, a := range f.assets {
		if a.AccountID == accountID && a.AlbumID == albumID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []uuid.UUID
	for id, res := range f.reservations {
		if res.Status == ReservationPending && !res.ExpiresAt.After(cutoff) {
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (f *fakeLedger) ListQuotaAccountIDs(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(f.quotas))
	for id := range f.quotas {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeLedger) RecomputeCommitted(_ context.Context, accountID uuid.UUID) (bool, int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q, ok := f.quotas[accountID]
	if !ok {
		return false, 0, 0, nil
	}

	var actual int64
	for _, a := range f.assets {
		if a.AccountID == accountID {
			actual += a.SizeBytes
		}
	}
	before := q.CommittedBytes
	if before == actual {
		return false, before, actual, nil
	}
	q.CommittedBytes = actual
	return true, before, actual, nil
}

func (f *fakeLedger) quota(accountID uuid.UUID) QuotaAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.quotas[accountID]
}

// fakeSigner simulates the object store: signed URLs are deterministic and
// object sizes come from a preloaded map.
type fakeSigner struct {
	mu        sync.Mutex
	objects   map[string]int64
	removed   []string
	uploadErr error
	statErr   error
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{objects: make(map[string]int64)}
}

func (f *fakeSigner) IssueUploadURL(_ context.Context, _ uuid.UUID, objectPath string) (string, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", time.Time{}, f.uploadErr
	}
	return "https://store.test/put/" + objectPath, time.Now().Add(15 * time.Minute), nil
}

func (f *fakeSigner) IssueReadURL(_ context.Context, _ uuid.UUID, objectPath string) (string, time.Time, error) {
	return "https://store.test/get/" + objectPath, time.Now().Add(time.Hour), nil
}

func (f *fakeSigner) StatObject(_ context.Context, objectPath string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statErr != nil {
		return 0, f.statErr
	}
	size, ok := f.objects[objectPath]
	if !ok {
		return 0, presigned.ErrObjectMissing
	}
	return size, nil
}

func (f *fakeSigner) RemoveObject(_ context.Context, objectPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectPath)
	f.removed = append(f.removed, objectPath)
	return nil
}

func (f *fakeSigner) putObject(objectPath string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectPath] = size
}

type fakeAlbums struct {
	albums map[uuid.UUID]album.Album
}

func (f *fakeAlbums) Get(_ context.Context, ownerID, albumID uuid.UUID) (album.Album, error) {
	a, ok := f.albums[albumID]
	if !ok || a.OwnerID != ownerID {
		return album.Album{}, album.ErrAlbumNotFound
	}
	return a, nil
}

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		DefaultQuotaBytes: 1_000_000,
		MaxUploadBytes:    800_000,
		UploadWindow:      15 * time.Minute,
		ReadURLTTL:        time.Hour,
		SweepInterval:     time.Minute,
		ReconcileInterval: time.Hour,
	}
}

type fixture struct {
	service   *Service
	ledger    *fakeLedger
	signer    *fakeSigner
	accountID uuid.UUID
	albumID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	accountID := uuid.New()
	albumID := uuid.New()
	ledger := newFakeLedger()
	signer := newFakeSigner()
	albums := &fakeAlbums{albums: map[uuid.UUID]album.Album{
		albumID: {ID: albumID, OwnerID: accountID, Title: "Graduation 2019"},
	}}

	return &fixture{
		service:   NewService(ledger, signer, albums, testUploadConfig(), zap.NewNop()),
		ledger:    ledger,
		signer:    signer,
		accountID: accountID,
		albumID:   albumID,
	}
}

func (fx *fixture) reserve(t *testing.T, size int64) ReserveResult {
	t.Helper()
	result, err := fx.service.Reserve(context.Background(), fx.accountID, fx.albumID, "photo.jpg", "image/jpeg", size)
	if err != nil {
		t.Fatalf("reserve %d bytes: %v", size, err)
	}
	return result
}

func TestReserveIssuesUploadURL(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 600_000)

	if result.UploadURL == "" {
		t.Fatalf("expected an upload url")
	}
	if !strings.HasPrefix(result.Reservation.ObjectPath, fmt.Sprintf("accounts/%s/albums/%s/", fx.accountID, fx.albumID)) {
		t.Fatalf("object path outside account namespace: %s", result.Reservation.ObjectPath)
	}
	if !strings.HasSuffix(result.Reservation.ObjectPath, ".jpg") {
		t.Fatalf("expected file extension preserved: %s", result.Reservation.ObjectPath)
	}

	q := fx.ledger.quota(fx.accountID)
	if q.ReservedBytes != 600_000 {
		t.Fatalf("expected 600000 reserved, got %d", q.ReservedBytes)
	}
}

func TestReserveRejectsWhenCapacityIsHeld(t *testing.T) {
	fx := newFixture(t)

	first := fx.reserve(t, 600_000)

	// 600k held against a 1M quota leaves no room for 500k more.
	_, err := fx.service.Reserve(context.Background(), fx.accountID, fx.albumID, "b.jpg", "image/jpeg", 500_000)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// Canceling the first reservation frees the capacity again.
	if err := fx.service.Cancel(context.Background(), fx.accountID, first.Reservation.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := fx.service.Reserve(context.Background(), fx.accountID, fx.albumID, "b.jpg", "image/jpeg", 500_000); err != nil {
		t.Fatalf("reserve after cancel: %v", err)
	}
}

func TestReserveValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if _, err := fx.service.Reserve(ctx, fx.accountID, fx.albumID, "a.jpg", "image/jpeg", 0); !errors.Is(err, ErrInvalidEstimate) {
		t.Fatalf("expected ErrInvalidEstimate, got %v", err)
	}
	if _, err := fx.service.Reserve(ctx, fx.accountID, fx.albumID, "a.jpg", "image/jpeg", -5); !errors.Is(err, ErrInvalidEstimate) {
		t.Fatalf("expected ErrInvalidEstimate for negative size, got %v", err)
	}
	if _, err := fx.service.Reserve(ctx, fx.accountID, fx.albumID, "a.mp4", "video/mp4", 900_000); !errors.Is(err, ErrUploadTooLarge) {
		t.Fatalf("expected ErrUploadTooLarge, got %v", err)
	}
	if _, err := fx.service.Reserve(ctx, fx.accountID, uuid.New(), "a.jpg", "image/jpeg", 1000); !errors.Is(err, ErrAlbumNotFound) {
		t.Fatalf("expected ErrAlbumNotFound, got %v", err)
	}
}

func TestReserveReleasesClaimWhenSigningFails(t *testing.T) {
	fx := newFixture(t)
	fx.signer.uploadErr = errors.New("store down")

	_, err := fx.service.Reserve(context.Background(), fx.accountID, fx.albumID, "a.jpg", "image/jpeg", 400_000)
	if err == nil {
		t.Fatalf("expected signing failure to surface")
	}

	q := fx.ledger.quota(fx.accountID)
	if q.ReservedBytes != 0 {
		t.Fatalf("expected claim released after signing failure, got %d reserved", q.ReservedBytes)
	}
}

func TestCommitSwapsEstimateForActualSize(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 600_000)
	fx.signer.putObject(result.Reservation.ObjectPath, 587_234)

	asset, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if asset.SizeBytes != 587_234 {
		t.Fatalf("expected stored size from object store, got %d", asset.SizeBytes)
	}

	q := fx.ledger.quota(fx.accountID)
	if q.ReservedBytes != 0 {
		t.Fatalf("expected reservation fully released, got %d reserved", q.ReservedBytes)
	}
	if q.CommittedBytes != 587_234 {
		t.Fatalf("expected committed to reflect actual size, got %d", q.CommittedBytes)
	}
}

func TestCommitIsIdempotent(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 300_000)
	fx.signer.putObject(result.Reservation.ObjectPath, 300_000)

	first, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	second, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same asset on retry, got %s and %s", first.ID, second.ID)
	}

	q := fx.ledger.quota(fx.accountID)
	if q.CommittedBytes != 300_000 {
		t.Fatalf("expected committed counted once, got %d", q.CommittedBytes)
	}
}

func TestCommitAfterExpiry(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 300_000)
	fx.signer.putObject(result.Reservation.ObjectPath, 300_000)

	fx.service.nowFunc = func() time.Time { return time.Now().Add(16 * time.Minute) }

	_, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID)
	if !errors.Is(err, ErrReservationExpired) {
		t.Fatalf("expected ErrReservationExpired, got %v", err)
	}
}

func TestCommitWithoutUploadedObject(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 300_000)

	_, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID)
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}

	// The reservation stays pending; the sweep will reclaim it later.
	res, err := fx.ledger.GetReservation(context.Background(), result.Reservation.ID)
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	if res.Status != ReservationPending {
		t.Fatalf("expected reservation still pending, got %s", res.Status)
	}
}

func TestCommitStoreUnavailable(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 300_000)
	fx.signer.statErr = errors.New("connection refused")

	_, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestCommitAcceptsOverQuotaActualSize(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 700_000)
	// The object turned out larger than estimated and larger than the quota.
	fx.signer.putObject(result.Reservation.ObjectPath, 1_100_000)

	asset, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID)
	if err != nil {
		t.Fatalf("over-quota commit should succeed: %v", err)
	}
	if asset.SizeBytes != 1_100_000 {
		t.Fatalf("expected actual size recorded, got %d", asset.SizeBytes)
	}

	q := fx.ledger.quota(fx.accountID)
	if q.CommittedBytes != 1_100_000 {
		t.Fatalf("expected committed over quota, got %d", q.CommittedBytes)
	}
	if q.RemainingBytes() != 0 {
		t.Fatalf("expected remaining floored at zero, got %d", q.RemainingBytes())
	}
}

func TestCommitForWrongAccount(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 300_000)

	_, err := fx.service.Commit(context.Background(), uuid.New(), result.Reservation.ID)
	if !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound for foreign account, got %v", err)
	}
}

func TestCancelRemovesPartialUpload(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 300_000)
	fx.signer.putObject(result.Reservation.ObjectPath, 120_000)

	if err := fx.service.Cancel(context.Background(), fx.accountID, result.Reservation.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(fx.signer.removed) != 1 || fx.signer.removed[0] != result.Reservation.ObjectPath {
		t.Fatalf("expected partial object removed, got %v", fx.signer.removed)
	}

	// Canceling again is a no-op.
	if err := fx.service.Cancel(context.Background(), fx.accountID, result.Reservation.ID); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if len(fx.signer.removed) != 1 {
		t.Fatalf("expected no second removal, got %v", fx.signer.removed)
	}
}

func TestDeleteAssetFreesCommittedBytes(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 400_000)
	fx.signer.putObject(result.Reservation.ObjectPath, 400_000)
	asset, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := fx.service.DeleteAsset(context.Background(), fx.accountID, asset.ID); err != nil {
		t.Fatalf("delete asset: %v", err)
	}

	q := fx.ledger.quota(fx.accountID)
	if q.CommittedBytes != 0 {
		t.Fatalf("expected committed freed, got %d", q.CommittedBytes)
	}
	if len(fx.signer.removed) != 1 {
		t.Fatalf("expected stored object removed, got %v", fx.signer.removed)
	}
}

func TestQuotaSummary(t *testing.T) {
	fx := newFixture(t)

	fx.reserve(t, 250_000)

	info, err := fx.service.Quota(context.Background(), fx.accountID)
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	if info.QuotaBytes != 1_000_000 || info.ReservedBytes != 250_000 || info.RemainingBytes != 750_000 {
		t.Fatalf("unexpected quota summary: %+v", info)
	}
}

func TestListAlbumMediaSignsReadURLs(t *testing.T) {
	fx := newFixture(t)

	result := fx.reserve(t, 200_000)
	fx.signer.putObject(result.Reservation.ObjectPath, 200_000)
	if _, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID); err != nil {
		t.Fatalf("commit: %v", err)
	}

	items, err := fx.service.ListAlbumMedia(context.Background(), fx.accountID, fx.albumID)
	if err != nil {
		t.Fatalf("list media: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one media item, got %d", len(items))
	}
	if !strings.HasPrefix(items[0].DownloadURL, "https://store.test/get/") {
		t.Fatalf("expected a signed read url, got %s", items[0].DownloadURL)
	}
}

func TestReleaseExpiredReclaimsOnlyLapsedReservations(t *testing.T) {
	fx := newFixture(t)

	expired := fx.reserve(t, 300_000)
	fresh := fx.reserve(t, 200_000)

	fx.ledger.mu.Lock()
	fx.ledger.reservations[expired.Reservation.ID].ExpiresAt = time.Now().Add(-time.Minute)
	fx.ledger.mu.Unlock()

	released, err := fx.service.ReleaseExpired(context.Background())
	if err != nil {
		t.Fatalf("release expired: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected one reservation released, got %d", released)
	}

	q := fx.ledger.quota(fx.accountID)
	if q.ReservedBytes != 200_000 {
		t.Fatalf("expected only the fresh reservation held, got %d", q.ReservedBytes)
	}

	res, _ := fx.ledger.GetReservation(context.Background(), fresh.Reservation.ID)
	if res.Status != ReservationPending {
		t.Fatalf("expected fresh reservation untouched, got %s", res.Status)
	}
}

func TestReconcileCorrectsDriftedUsage(t *testing.T) {
	fx := newFixture(t)

	for _, size := range []int64{100, 200, 300} {
		result := fx.reserve(t, size)
		fx.signer.putObject(result.Reservation.ObjectPath, size)
		if _, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	// Simulate drift from a partial failure.
	fx.ledger.mu.Lock()
	fx.ledger.quotas[fx.accountID].CommittedBytes = 1000
	fx.ledger.mu.Unlock()

	corrected, err := fx.service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if corrected != 1 {
		t.Fatalf("expected one corrected account, got %d", corrected)
	}
	if got := fx.ledger.quota(fx.accountID).CommittedBytes; got != 600 {
		t.Fatalf("expected committed recomputed to 600, got %d", got)
	}

	// A second pass finds nothing to fix.
	corrected, err = fx.service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if corrected != 0 {
		t.Fatalf("expected reconciliation idempotent, got %d corrections", corrected)
	}
}

func TestConcurrentReservationsNeverOversubscribe(t *testing.T) {
	fx := newFixture(t)

	const workers = 20
	const each = 150_000 // only 6 of 20 fit into 1M

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.service.Reserve(context.Background(), fx.accountID, fx.albumID, "c.jpg", "image/jpeg", each)
			if err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			} else if !errors.Is(err, ErrQuotaExceeded) {
				t.Errorf("unexpected reserve error: %v", err)
			}
		}()
	}
	wg.Wait()

	if granted != 6 {
		t.Fatalf("expected exactly 6 grants, got %d", granted)
	}
	q := fx.ledger.quota(fx.accountID)
	if q.ReservedBytes > q.QuotaBytes {
		t.Fatalf("reserved %d exceeds quota %d", q.ReservedBytes, q.QuotaBytes)
	}
}

func TestPurgeAlbumDeletesEveryAsset(t *testing.T) {
	fx := newFixture(t)

	for _, size := range []int64{100_000, 150_000} {
		result := fx.reserve(t, size)
		fx.signer.putObject(result.Reservation.ObjectPath, size)
		if _, err := fx.service.Commit(context.Background(), fx.accountID, result.Reservation.ID); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	if err := fx.service.PurgeAlbum(context.Background(), fx.accountID, fx.albumID); err != nil {
		t.Fatalf("purge album: %v", err)
	}

	q := fx.ledger.quota(fx.accountID)
	if q.CommittedBytes != 0 {
		t.Fatalf("expected all committed bytes freed, got %d", q.CommittedBytes)
	}
	if len(fx.signer.removed) != 2 {
		t.Fatalf("expected both objects removed, got %v", fx.signer.removed)
	}
}
