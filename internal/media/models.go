package media

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of an upload reservation.
// Terminal states are retained for audit and idempotency, never reused.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// QuotaAccount is the durable per-account ledger row: limit, committed usage,
// and in-flight reserved usage. Mutated only through the ledger operations.
type QuotaAccount struct {
	AccountID      uuid.UUID
	QuotaBytes     int64
	CommittedBytes int64
	ReservedBytes  int64
	ReconciledAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RemainingBytes reports how much capacity is still reservable.
func (q QuotaAccount) RemainingBytes() int64 {
	remaining := q.QuotaBytes - q.CommittedBytes - q.ReservedBytes
	if remaining < 0 {
		return 0
	}
	return remaining
}

// OverQuota reports whether declared usage exceeds the limit. This can only
// happen when an upload's actual size outgrew its estimate at commit time.
func (q QuotaAccount) OverQuota() bool {
	return q.CommittedBytes+q.ReservedBytes > q.QuotaBytes
}

// Reservation is a provisional claim on quota capacity for one direct upload.
type Reservation struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	AlbumID        uuid.UUID
	ObjectPath     string
	ContentType    string
	EstimatedBytes int64
	Status         ReservationStatus
	AssetID        *uuid.UUID
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Asset is the durable record of a successfully committed upload. SizeBytes
// is authoritative, taken from the object store at commit time.
type Asset struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	AlbumID     uuid.UUID `json:"album_id"`
	ObjectPath  string    `json:"object_path"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// QuotaInfo is the client-facing usage summary.
type QuotaInfo struct {
	QuotaBytes     int64 `json:"quota_bytes"`
	UsedBytes      int64 `json:"used_bytes"`
	ReservedBytes  int64 `json:"reserved_bytes"`
	RemainingBytes int64 `json:"remaining_bytes"`
}

// MediaItem pairs an asset with a presigned read URL for listing responses.
type MediaItem struct {
	Asset
	DownloadURL          string    `json:"download_url"`
	DownloadURLExpiresAt time.Time `json:"download_url_expires_at"`
}
