package core

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

// respondError sends the unified error payload {"message": ...}.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// parsePagination reads page/per_page query values with defaults and caps.
func parsePagination(pageStr, perPageStr string) (int, int, error) {
	page := 1
	perPage := defaultPerPage
	if pageStr != "" {
		v, err := strconv.Atoi(pageStr)
		if err != nil || v <= 0 {
			return 0, 0, errors.New("invalid page")
		}
		page = v
	}
	if perPageStr != "" {
		v, err := strconv.Atoi(perPageStr)
		if err != nil || v <= 0 {
			return 0, 0, errors.New("invalid per_page")
		}
		if v > maxPerPage {
			v = maxPerPage
		}
		perPage = v
	}
	return page, perPage, nil
}

func calcTotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
