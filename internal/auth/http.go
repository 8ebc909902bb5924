package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts authentication endpoints under /auth.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", handler.register)
		authGroup.POST("/login", handler.login)
	}
}

type httpHandler struct {
	service *Service
}

type registerRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8,max=72"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	ClassYear   *int    `json:"class_year" binding:"omitempty,min=1900,max=2100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type accountPayload struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name,omitempty"`
	ClassYear   *int    `json:"class_year,omitempty"`
	IsAdmin     bool    `json:"is_admin"`
}

type authResponse struct {
	Account            accountPayload `json:"account"`
	AccessToken        string         `json:"access_token"`
	AccessTokenExpiry  time.Time      `json:"access_token_expiry"`
	RefreshToken       string         `json:"refresh_token"`
	RefreshTokenExpiry time.Time      `json:"refresh_token_expiry"`
}

func (h *httpHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Register(c.Request.Context(), RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		ClassYear:   req.ClassYear,
	})
	if err != nil {
		switch err {
		case ErrEmailAlreadyExists:
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		case ErrInvalidCredentials:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register account"})
		}
		return
	}

	c.JSON(http.StatusCreated, buildAuthResponse(result))
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Login(c.Request.Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if err == ErrInvalidCredentials {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to login"})
		return
	}

	c.JSON(http.StatusOK, buildAuthResponse(result))
}

func buildAuthResponse(result AuthResult) authResponse {
	return authResponse{
		Account: accountPayload{
			ID:          result.Account.ID.String(),
			Email:       result.Account.Email,
			DisplayName: result.Account.DisplayName,
			ClassYear:   result.Account.ClassYear,
			IsAdmin:     result.Account.IsAdmin,
		},
		AccessToken:        result.Tokens.AccessToken,
		AccessTokenExpiry:  result.Tokens.AccessTokenExpiry,
		RefreshToken:       result.Tokens.RefreshToken,
		RefreshTokenExpiry: result.Tokens.RefreshTokenExpiry,
	}
}
