package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/dues/domain"
)

type listDuesQuery struct {
	Period   string `form:"period"`
	Status   string `form:"status"`
	Block    string `form:"block"`
	Category string `form:"category"`
	Search   string `form:"q"`
	Sort     string `form:"sort"`
	Group    string `form:"group"`
}

func (s *Server) ListDues(c *gin.Context) {
	var query listDuesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dues.List(c.Request.Context(), domain.ListDuesRequest{
		Period:   strings.TrimSpace(query.Period),
		Status:   strings.TrimSpace(query.Status),
		Block:    strings.TrimSpace(query.Block),
		Category: strings.TrimSpace(query.Category),
		Search:   query.Search,
		Sort:     strings.TrimSpace(query.Sort),
		Group:    strings.TrimSpace(query.Group),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDue(c *gin.Context) {
	resp, err := s.dues.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type generateDueRequest struct {
	StandID   string          `json:"stand_id"`
	Period    string          `json:"period"`
	DueDate   string          `json:"due_date"`
	AmountDue decimal.Decimal `json:"amount_due"`
}

func (s *Server) GenerateDue(c *gin.Context) {
	var req generateDueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dues.Generate(c.Request.Context(), domain.GenerateDueRequest{
		StandID:   strings.TrimSpace(req.StandID),
		Period:    strings.TrimSpace(req.Period),
		DueDate:   strings.TrimSpace(req.DueDate),
		AmountDue: req.AmountDue,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type generateBulkRequest struct {
	Period    string          `json:"period"`
	DueDate   string          `json:"due_date"`
	AmountDue decimal.Decimal `json:"amount_due"`
	Block     string          `json:"block"`
	Category  string          `json:"category"`
}

// GenerateDuesBulk answers 200 even when some stands failed; the failures
// are listed in the body.
func (s *Server) GenerateDuesBulk(c *gin.Context) {
	var req generateBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dues.GenerateBulk(c.Request.Context(), domain.GenerateBulkRequest{
		Period:    strings.TrimSpace(req.Period),
		DueDate:   strings.TrimSpace(req.DueDate),
		AmountDue: req.AmountDue,
		Block:     strings.TrimSpace(req.Block),
		Category:  strings.TrimSpace(req.Category),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type recordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Reference   *string         `json:"reference"`
	Notes       *string         `json:"notes"`
	PaymentDate string          `json:"payment_date"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dues.RecordPayment(c.Request.Context(), domain.RecordPaymentRequest{
		DueID:     strings.TrimSpace(c.Param("id")),
		Amount:    req.Amount,
		Method:    strings.TrimSpace(req.Method),
		Reference: req.Reference,
		Notes:     req.Notes,
		PaidAt:    strings.TrimSpace(req.PaymentDate),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	resp, err := s.dues.ListPayments(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetIndicators(c *gin.Context) {
	var query struct {
		Period   string `form:"period"`
		Block    string `form:"block"`
		Category string `form:"category"`
		Source   string `form:"source"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dues.Indicators(c.Request.Context(), domain.IndicatorsRequest{
		Period:   strings.TrimSpace(query.Period),
		Block:    strings.TrimSpace(query.Block),
		Category: strings.TrimSpace(query.Category),
		Source:   strings.TrimSpace(query.Source),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportMorosity(c *gin.Context) {
	var query struct {
		Period   string `form:"period"`
		Block    string `form:"block"`
		Category string `form:"category"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	file, err := s.dues.ExportMorosity(c.Request.Context(), domain.ExportRequest{
		Period:   strings.TrimSpace(query.Period),
		Block:    strings.TrimSpace(query.Block),
		Category: strings.TrimSpace(query.Category),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writeFile(c, file)
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	file, err := s.dues.Receipt(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writeFile(c, file)
}

func writeFile(c *gin.Context, file *domain.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
