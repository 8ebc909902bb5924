package media

import (
	"errors"
	"net/http"
	"time"

	"github.com/nartay/alumbook/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes mounts upload, quota, and media endpoints onto the
// authenticated router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/uploads/reserve", handler.reserve)
	group.POST("/uploads/:reservationID/commit", handler.commit)
	group.POST("/uploads/:reservationID/cancel", handler.cancel)
	group.GET("/uploads/quota", handler.quota)
	group.GET("/albums/:albumID/media", handler.listAlbumMedia)
	group.DELETE("/media/:assetID", handler.deleteAsset)
}

// RegisterAdminRoutes mounts operator endpoints. The group must already carry
// auth.RequireAdmin.
func RegisterAdminRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/reconcile", handler.reconcile)
}

type httpHandler struct {
	service *Service
}

type reserveRequest struct {
	AlbumID        uuid.UUID `json:"album_id" binding:"required"`
	FileName       string    `json:"file_name" binding:"required,max=255"`
	ContentType    string    `json:"content_type" binding:"required,max=128"`
	EstimatedBytes int64     `json:"estimated_bytes" binding:"required"`
}

type reserveResponse struct {
	ReservationID      uuid.UUID `json:"reservation_id"`
	ObjectPath         string    `json:"object_path"`
	UploadURL          string    `json:"upload_url"`
	UploadURLExpiresAt time.Time `json:"upload_url_expires_at"`
	ExpiresAt          time.Time `json:"expires_at"`
}

func (h *httpHandler) reserve(c *gin.Context) {
	accountID, _, ok := auth.RequireAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Reserve(c.Request.Context(), accountID, req.AlbumID, req.FileName, req.ContentType, req.EstimatedBytes)
	if err != nil {
		switch {
		case errors.Is(err, ErrQuotaExceeded):
			c.JSON(http.StatusConflict, gin.H{"error": "storage quota exceeded"})
		case errors.Is(err, ErrInvalidEstimate):
			c.JSON(http.StatusBadRequest, gin.H{"error": "estimated size must be positive"})
		case errors.Is(err, ErrUploadTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds maximum allowed size"})
		case errors.Is(err, ErrAlbumNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reserve upload"})
		}
		return
	}

	c.JSON(http.StatusCreated, reserveResponse{
		ReservationID:      result.Reservation.ID,
		ObjectPath:         result.Reservation.ObjectPath,
		UploadURL:          result.UploadURL,
		UploadURLExpiresAt: result.UploadURLExpiresAt,
		ExpiresAt:          result.Reservation.ExpiresAt,
	})
}

func (h *httpHandler) commit(c *gin.Context) {
	accountID, _, ok := auth.RequireAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	reservationID, err := uuid.Parse(c.Param("reservationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	asset, err := h.service.Commit(c.Request.Context(), accountID, reservationID)
	if err != nil {
		switch {
		case errors.Is(err, ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		case errors.Is(err, ErrReservationExpired):
			c.JSON(http.StatusGone, gin.H{"error": "reservation expired"})
		case errors.Is(err, ErrObjectNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded object not found"})
		case errors.Is(err, ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object store unavailable, retry later"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to commit upload"})
		}
		return
	}

	c.JSON(http.StatusOK, asset)
}

func (h *httpHandler) cancel(c *gin.Context) {
	accountID, _, ok := auth.RequireAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	reservationID, err := uuid.Parse(c.Param("reservationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	if err := h.service.Cancel(c.Request.Context(), accountID, reservationID); err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel upload"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) quota(c *gin.Context) {
	accountID, _, ok := auth.RequireAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	info, err := h.service.Quota(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load quota"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *httpHandler) listAlbumMedia(c *gin.Context) {
	accountID, _, ok := auth.RequireAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	albumID, err := uuid.Parse(c.Param("albumID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid album id"})
		return
	}

	items, err := h.service.ListAlbumMedia(c.Request.Context(), accountID, albumID)
	if err != nil {
		if errors.Is(err, ErrAlbumNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list media"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"media": items})
}

func (h *httpHandler) deleteAsset(c *gin.Context) {
	accountID, _, ok := auth.RequireAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	assetID, err := uuid.Parse(c.Param("assetID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	if err := h.service.DeleteAsset(c.Request.Context(), accountID, assetID); err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete asset"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) reconcile(c *gin.Context) {
	corrected, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"corrected_accounts": corrected})
}
