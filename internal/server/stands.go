package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/pkg/db/pagination"
)

func (s *Server) ListStandDues(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dues.ListForStand(c.Request.Context(), domain.ListStandDuesRequest{
		StandID: strings.TrimSpace(c.Param("id")),
		Page:    query.Page,
		Size:    query.Size,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
