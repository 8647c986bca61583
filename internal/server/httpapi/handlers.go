// Package httpapi exposes the server over HTTP. Routes live under /api;
// responses are JSON, errors use a single {error, messages} envelope, and
// authenticated routes expect a bearer access token.
package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Erikmmkarlsson/graphmaster/internal/logging"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/services"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/tsdb"
)

// Handler carries the service-layer dependencies of the HTTP surface.
type Handler struct {
	users        *services.UserService
	registration *services.RegistrationService
	tenants      tsdb.Store
	logger       logging.Logger
}

func NewHandler(users *services.UserService, registration *services.RegistrationService, tenants tsdb.Store, logger logging.Logger) *Handler {
	return &Handler{
		users:        users,
		registration: registration,
		tenants:      tenants,
		logger:       logger,
	}
}

// NewRouter builds the engine with all middleware and routes registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(h.logger))

	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, CodeNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		abortWithError(c, http.StatusMethodNotAllowed, CodeMethodNotAllowed)
	})
	r.HandleMethodNotAllowed = true

	api := r.Group("/api")
	api.GET("/", h.Home)
	api.POST("/login", h.Login)
	api.POST("/refresh", h.Refresh)
	api.POST("/register", h.Register)
	api.GET("/finalize", h.Finalize)

	authed := api.Group("", h.RequireAuth())
	authed.GET("/protected", h.Protected)
	authed.POST("/measurements", h.WriteMeasurements)
	authed.GET("/measurements", h.QueryMeasurements)
	authed.POST("/disable_user", RequireRole(models.RoleAdmin), h.DisableUser)

	return r
}

// Home is the unauthenticated liveness probe.
func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"Hello": "World"})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	token, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

// Refresh exchanges a (possibly expired) access token for a fresh one. The
// token travels in the Authorization header like any other bearer call.
func (h *Handler) Refresh(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
		return
	}

	fresh, err := h.users.Refresh(c.Request.Context(), token)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": fresh})
}

func (h *Handler) Protected(c *gin.Context) {
	user := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("protected endpoint (allowed user %s)", user.Username),
	})
}

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	if err := h.registration.Register(c.Request.Context(), req.Username, req.Email, req.Password); err != nil {
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("successfully sent registration email to %s", req.Email),
	})
}

// Finalize activates the account behind the emailed registration token and
// returns a first access token. The link in the mail points here.
func (h *Handler) Finalize(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if t, ok := bearerToken(c); ok {
			token = t
		}
	}
	if token == "" {
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "missing registration token")
		return
	}

	access, err := h.registration.Finalize(c.Request.Context(), token)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

func (h *Handler) DisableUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	user, err := h.users.Disable(c.Request.Context(), req.Username)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("disabled user %s", user.Username),
	})
}
