package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"user-api/internal/auth"
	"user-api/internal/domain"
	"user-api/internal/metrics"
	"user-api/internal/service"
	"user-api/internal/validation"
)

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claim, error)
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth     service.AuthService
	users    service.UserService
	products service.ProductService
	rules    *validation.Rules
	tokens   TokenVerifier
	logger   *logrus.Logger
}

func NewHandler(
	authSvc service.AuthService,
	users service.UserService,
	products service.ProductService,
	rules *validation.Rules,
	tokens TokenVerifier,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		auth:     authSvc,
		users:    users,
		products: products,
		rules:    rules,
		tokens:   tokens,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID(), requestLogger(h.logger), corsMiddleware())
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"msg": "Route not found"})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		api.POST("/login", h.login)
		api.POST("/register", h.register)

		users := api.Group("/users")
		users.GET("", h.listUsers)
		users.GET("/me", h.requireAuth(), h.me)
		users.GET("/:id", h.getUser)
		users.POST("/create-user", h.createUser)
		users.PUT("/update-user/:id", h.updateUser)
		users.DELETE("/delete-user/:id", h.deleteUser)

		products := api.Group("/products")
		products.GET("", h.listProducts)
		products.GET("/product", h.getProduct)
	}
}

// UserResponse is the redacted view of a user; it has no password field.
type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Username:  user.Username,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

type ProductResponse struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	InStock  bool    `json:"in_stock"`
}

func productToResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		InStock:  p.InStock,
	}
}

// bindPayload decodes the body as a JSON object. It writes the 400 itself.
func bindPayload(c *gin.Context) (map[string]any, bool) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body", "error": err.Error()})
		return nil, false
	}
	return payload, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid user ID"})
		return 0, false
	}
	return id, true
}

// internalError logs err and answers 500 with msg and the error text.
func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.logger.WithError(err).
		WithField("request_id", c.GetString(requestIDKey)).
		WithField("path", c.FullPath()).
		Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"msg": msg, "error": err.Error()})
}
