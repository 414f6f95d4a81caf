package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"user-api/internal/metrics"
	"user-api/internal/service"
	"user-api/internal/validation"
)

func (h *Handler) login(c *gin.Context) {
	payload, ok := bindPayload(c)
	if !ok {
		metrics.RecordAuth("login", metrics.OutcomeInvalid)
		return
	}

	creds, err := h.rules.ValidateLogin(payload)
	if err != nil {
		metrics.RecordAuth("login", metrics.OutcomeInvalid)
		h.validationFailed(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), creds)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		metrics.RecordAuth("login", metrics.OutcomeNotFound)
		c.JSON(http.StatusNotFound, gin.H{"msg": "User not found"})
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		metrics.RecordAuth("login", metrics.OutcomeBadPassword)
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Invalid password"})
		return
	case err != nil:
		metrics.RecordAuth("login", metrics.OutcomeInternalFail)
		h.internalError(c, "Error logging in", err)
		return
	}

	metrics.RecordAuth("login", metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{
		"msg":        "Login successful",
		"token":      result.Token,
		"expires_at": result.ExpiresAt.UTC().Format(time.RFC3339),
		"user":       userToResponse(*result.User),
	})
}

func (h *Handler) register(c *gin.Context) {
	payload, ok := bindPayload(c)
	if !ok {
		metrics.RecordAuth("register", metrics.OutcomeInvalid)
		return
	}

	reg, err := h.rules.ValidateRegistration(payload)
	if err != nil {
		metrics.RecordAuth("register", metrics.OutcomeInvalid)
		h.validationFailed(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), reg)
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		metrics.RecordAuth("register", metrics.OutcomeConflict)
		c.JSON(http.StatusConflict, gin.H{"msg": "Username already exists"})
		return
	case err != nil:
		metrics.RecordAuth("register", metrics.OutcomeInternalFail)
		h.internalError(c, "Error registering user", err)
		return
	}

	metrics.RecordAuth("register", metrics.OutcomeSuccess)
	c.JSON(http.StatusCreated, gin.H{
		"msg":  "User registered successfully",
		"user": userToResponse(*user),
	})
}

// me returns the user named by the verified bearer token.
func (h *Handler) me(c *gin.Context) {
	claim := claimFromContext(c)

	user, err := h.users.GetByID(c.Request.Context(), claim.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "User not found"})
			return
		}
		h.internalError(c, "Error fetching user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Authenticated user", "data": userToResponse(*user)})
}

func (h *Handler) validationFailed(c *gin.Context, err error) {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		h.internalError(c, "Error validating request", err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"msg": "Validation failed", "errors": errs})
}
