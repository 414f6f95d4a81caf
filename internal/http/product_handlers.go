package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"user-api/internal/service"
)

// Product routes answer with "message" rather than "msg".

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("list products")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching products", "error": err.Error()})
		return
	}

	resp := make([]ProductResponse, len(products))
	for i := range products {
		resp[i] = productToResponse(products[i])
	}
	c.JSON(http.StatusOK, gin.H{"message": "List of products", "data": resp})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, err := parseLeadingInt(c.Query("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or missing productId query parameter"})
		return
	}

	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("Product with id %d not found", id)})
			return
		}
		h.logger.WithError(err).Error("get product")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching product", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Product with id %d found", id),
		"data":    productToResponse(*product),
	})
}

// parseLeadingInt reads an optionally signed integer from the start of s and
// ignores whatever follows it, so "2abc" is 2. Input without leading digits is an error.
func parseLeadingInt(s string) (int, error) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	return strconv.Atoi(s[:end])
}
