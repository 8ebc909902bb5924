package media

import "errors"

var (
	// ErrQuotaExceeded means the reservation would exceed remaining capacity.
	// Recoverable: the account must free space or shrink the upload.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrReservationNotFound signals an unknown reservation id, or one owned
	// by a different account.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrReservationExpired means the upload window elapsed before commit.
	// The client must request a fresh reservation.
	ErrReservationExpired = errors.New("reservation expired")
	// ErrObjectNotFound means commit was called but no object exists at the
	// reserved path; the upload failed or never happened.
	ErrObjectNotFound = errors.New("uploaded object not found")
	// ErrAssetNotFound signals an unknown asset id for the account.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrAlbumNotFound signals the target album does not belong to the account.
	ErrAlbumNotFound = errors.New("album not found")
	// ErrInvalidEstimate is returned for non-positive estimated sizes.
	ErrInvalidEstimate = errors.New("estimated size must be positive")
	// ErrUploadTooLarge is returned when the estimate exceeds the single-upload cap.
	ErrUploadTooLarge = errors.New("upload exceeds maximum allowed size")
	// ErrStoreUnavailable marks a transient object-store fault; callers
	// should retry with backoff.
	ErrStoreUnavailable = errors.New("object store unavailable")
)
