package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	renewaldomain "github.com/smallbiznis/netbill/internal/renewal/domain"
)

type renewCustomerRequest struct {
	PeriodMonths int    `json:"period_months"`
	StartDate    string `json:"start_date"`
}

func (s *Server) RenewCustomer(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req renewCustomerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	var startDate *time.Time
	if strings.TrimSpace(req.StartDate) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate))
		if err != nil {
			AbortWithError(c, newValidationError("start_date", "invalid_start_date", "start_date must be YYYY-MM-DD"))
			return
		}
		startDate = &parsed
	}

	result, err := s.renewalSvc.Renew(c.Request.Context(), renewaldomain.RenewRequest{
		CustomerID:   id,
		PeriodMonths: req.PeriodMonths,
		StartDate:    startDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) RevertRenewal(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	txn, err := s.renewalSvc.RevertLast(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txn})
}

type adjustBalanceRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func (s *Server) AdjustCustomerBalance(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req adjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	txn, err := s.ledgerSvc.AdjustBalance(c.Request.Context(), id, req.Amount, strings.TrimSpace(req.Description))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txn})
}

type createAddonBillRequest struct {
	Description    string  `json:"description"`
	Amount         float64 `json:"amount"`
	CGSTPercentage float64 `json:"cgst_percentage"`
	SGSTPercentage float64 `json:"sgst_percentage"`
	IGSTPercentage float64 `json:"igst_percentage"`
}

func (s *Server) CreateAddonBill(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createAddonBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		AbortWithError(c, newValidationError("description", "missing_description", "description is required"))
		return
	}

	bill, txn, err := s.ledgerSvc.CreateAddonBill(c.Request.Context(), ledgerdomain.AddonBillRequest{
		CustomerID:     id,
		Description:    strings.TrimSpace(req.Description),
		Amount:         req.Amount,
		CGSTPercentage: req.CGSTPercentage,
		SGSTPercentage: req.SGSTPercentage,
		IGSTPercentage: req.IGSTPercentage,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"addon_bill": bill, "transaction": txn}})
}

func (s *Server) RunRenewalSweep(c *gin.Context) {
	result, err := s.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
