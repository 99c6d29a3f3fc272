package handler

import (
	"net/http"
	"time"

	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/microservices/http-api/middleware"
	"kaimaku/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	authService service.AuthService
	sessions    service.SessionService
	cookie      CookieConfig
}

func NewAuthHandler(authService service.AuthService, sessions service.SessionService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, cookie: cookie}
}

// RegisterRoutes registers auth routes. The router group must already run
// SessionMiddleware.
func (h *AuthHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/captcha", h.Captcha)
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.GET("/me", h.Me)
}

// Captcha issues a fresh challenge
// GET /api/captcha
func (h *AuthHandler) Captcha(c *gin.Context) {
	challenge := h.authService.NewCaptcha()
	c.JSON(http.StatusOK, dto.CaptchaResponse{
		CaptchaID: challenge.ID,
		Question:  challenge.Question,
	})
}

// POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to register user")
		return
	}

	token, expires, err := h.sessions.Start(c.Request.Context(), user)
	if err != nil {
		respondError(c, err, "Failed to register user")
		return
	}
	h.setCookie(c, token, expires)

	c.JSON(http.StatusOK, dto.AuthResponse{Success: true, Username: user.Username})
}

// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err, "Failed to login")
		return
	}

	token, expires, err := h.sessions.Start(c.Request.Context(), user)
	if err != nil {
		respondError(c, err, "Failed to login")
		return
	}
	h.setCookie(c, token, expires)

	c.JSON(http.StatusOK, dto.AuthResponse{Success: true, Username: user.Username})
}

// Logout always succeeds; an unknown session is already logged out.
// POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.sessions.End(c.Request.Context(), token); err != nil {
			_ = c.Error(err)
		}
	}
	h.clearCookie(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	p := middleware.Principal(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, dto.MeResponse{Username: p.Username})
}

func (h *AuthHandler) setCookie(c *gin.Context, token string, expires time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
