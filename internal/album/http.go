package album

import (
	"net/http"

	"github.com/nartay/alumbook/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes mounts album endpoints onto the router.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/albums", handler.createAlbum)
	group.GET("/albums", handler.listAlbums)
	group.GET("/albums/:albumID", handler.getAlbum)
	group.DELETE("/albums/:albumID", handler.deleteAlbum)
}

type httpHandler struct {
	service *Service
}

type createAlbumRequest struct {
	Title       string  `json:"title" binding:"required,max=160"`
	Description *string `json:"description" binding:"omitempty,max=255"`
}

func (h *httpHandler) createAlbum(c *gin.Context) {
	accountID, _, ok := auth.RequireAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	album, err := h.service.CreateAlbum(c.Request.Context(), accountID, req.Title, req.Description)
	if err != nil {
		switch err {
		case ErrAlbumTitleExists:
			c.JSON(http.StatusConflict, gin.H{"error": "album title already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create album"})
		}
		return
	}

	c.JSON(http.StatusCreated, album)
}

func (h *httpHandler) listAlbums(c *gin.Context) {
	accountID, _, ok := auth.RequireAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	list, err := h.service.ListAlbums(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list albums"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"albums": list})
}

func (h *httpHandler) getAlbum(c *gin.Context) {
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

	album, err := h.service.GetAlbum(c.Request.Context(), accountID, albumID)
	if err != nil {
		if err == ErrAlbumNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get album"})
		return
	}

	c.JSON(http.StatusOK, album)
}

func (h *httpHandler) deleteAlbum(c *gin.Context) {
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

	if err := h.service.DeleteAlbum(c.Request.Context(), accountID, albumID); err != nil {
		if err == ErrAlbumNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete album"})
		return
	}

	c.Status(http.StatusNoContent)
}
