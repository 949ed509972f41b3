package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/auth"
	"github.com/opssage/opssage/internal/models"
	"github.com/opssage/opssage/internal/store"
)

// UserHandler manages accounts and token issuance. Refresh tokens live in
// Redis; when Redis is not configured the refresh endpoint is unavailable.
type UserHandler struct {
	users *store.UserStore
	auth  *auth.Service
	redis *redis.Client
	log   *zap.SugaredLogger
}

func NewUserHandler(users *store.UserStore, authSvc *auth.Service, redisClient *redis.Client, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{users: users, auth: authSvc, redis: redisClient, log: log}
}

func (h *UserHandler) Register(c *gin.Context) {
	var request struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Password string `json:"password"`
	}
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	existingUser, err := h.users.FindByUsername(c.Request.Context(), request.Username)
	if err != nil {
		h.log.Errorw("user lookup failed", "username", request.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if existingUser != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		return
	}

	user := models.User{
		Username: request.Username,
		Email:    request.Email,
		Role:     request.Role,
	}
	if err := user.HashPassword(request.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	if err := h.users.Create(c.Request.Context(), &user); err != nil {
		h.log.Errorw("user create failed", "username", request.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully"})
}

func (h *UserHandler) Login(c *gin.Context) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BindJSON(&credentials); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.users.FindByUsername(c.Request.Context(), credentials.Username)
	if err != nil {
		h.log.Errorw("user lookup failed", "username", credentials.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err := user.CheckPassword(credentials.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	jwtToken, err := h.auth.GenerateJWT(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	response := gin.H{
		"token":    jwtToken,
		"username": user.Username,
		"role":     user.Role,
	}
	if h.redis != nil {
		refreshToken, err := h.auth.GenerateRefreshToken()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
			return
		}
		h.redis.Set(c.Request.Context(), refreshToken, user.Username, 24*time.Hour)
		response["refresh_token"] = refreshToken
	}

	c.JSON(http.StatusOK, response)
}

func (h *UserHandler) RefreshToken(c *gin.Context) {
	if h.redis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Refresh tokens not available"})
		return
	}

	var request struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	username, err := h.redis.Get(c.Request.Context(), request.RefreshToken).Result()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	newToken, err := h.auth.GenerateJWT(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": newToken})
}
