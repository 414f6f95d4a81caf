package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"user-api/internal/domain"
	"user-api/internal/service"
	"user-api/internal/validation"
)

type createUserRequest struct {
	Name     string `json:"Name"`
	Username string `json:"Username"`
	Password string `json:"Password"`
}

type updateUserRequest struct {
	Name     *string `json:"Name"`
	Username *string `json:"Username"`
	Password *string `json:"Password"`
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "Error fetching users", err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, gin.H{"msg": "User data fetched successfully", "data": resp})
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": fmt.Sprintf("User with ID %d not found", id)})
			return
		}
		h.internalError(c, "Error fetching user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":  fmt.Sprintf("User with ID %d found", id),
		"data": userToResponse(*user),
	})
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body", "error": err.Error()})
		return
	}
	if err := validation.CheckPasswordLength(req.Password); err != nil {
		h.validationFailed(c, err)
		return
	}

	user, err := h.users.Create(c.Request.Context(), service.NewUser{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.internalError(c, "Error creating user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"msg": "User created successfully", "data": userToResponse(*user)})
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid request body", "error": err.Error()})
		return
	}
	if req.Password != nil {
		if err := validation.CheckPasswordLength(*req.Password); err != nil {
			h.validationFailed(c, err)
			return
		}
	}

	user, err := h.users.Update(c.Request.Context(), id, domain.UserUpdate{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.internalError(c, "Error updating user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "User updated successfully", "data": userToResponse(*user)})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		h.internalError(c, "Error deleting user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": fmt.Sprintf("User with ID %d deleted successfully", id)})
}
