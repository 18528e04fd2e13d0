package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	"github.com/smallbiznis/netbill/internal/period"
	plandomain "github.com/smallbiznis/netbill/internal/plan/domain"
)

type createCustomerRequest struct {
	CustomerCode string `json:"customer_code"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	BillingType  string `json:"billing_type"`
	PlanID       string `json:"plan_id"`
	PeriodMonths int    `json:"period_months"`
	StartDate    string `json:"start_date"`
	AutoRenew    bool   `json:"auto_renew"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.CustomerCode) == "" {
		AbortWithError(c, newValidationError("customer_code", "missing_customer_code", "customer_code is required"))
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		AbortWithError(c, newValidationError("full_name", "missing_full_name", "full_name is required"))
		return
	}

	billingType := period.Prepaid
	switch strings.ToUpper(strings.TrimSpace(req.BillingType)) {
	case "", string(period.Prepaid):
	case string(period.Postpaid):
		billingType = period.Postpaid
	default:
		AbortWithError(c, newValidationError("billing_type", "invalid_billing_type", "billing_type must be PREPAID or POSTPAID"))
		return
	}

	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil {
		AbortWithError(c, newValidationError("plan_id", "invalid_plan_id", "invalid plan_id"))
		return
	}
	plan, err := s.planRepo.FindByID(c.Request.Context(), s.db, planID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if plan == nil {
		AbortWithError(c, plandomain.ErrPlanNotFound)
		return
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

	months := req.PeriodMonths
	if months == 0 {
		months = 1
	}
	if months < 0 {
		AbortWithError(c, newValidationError("period_months", "invalid_period_months", "period_months must be positive"))
		return
	}

	cust := &customerdomain.Customer{
		ID:           s.genID.Generate(),
		CustomerCode: strings.TrimSpace(req.CustomerCode),
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.TrimSpace(req.Email),
		BillingType:  billingType,
		PlanID:       plan.ID,
		PeriodMonths: months,
		StartDate:    startDate,
		AutoRenew:    req.AutoRenew,
		Status:       customerdomain.StatusActive,
	}
	if err := s.customerRepo.Insert(c.Request.Context(), s.db, cust); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cust})
}

func (s *Server) GetCustomer(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	cust, err := s.customerRepo.FindByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if cust == nil {
		AbortWithError(c, customerdomain.ErrCustomerNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cust})
}

type updateCustomerRequest struct {
	FullName     *string `json:"full_name"`
	Email        *string `json:"email"`
	PlanID       *string `json:"plan_id"`
	PeriodMonths *int    `json:"period_months"`
	AutoRenew    *bool   `json:"auto_renew"`
	Status       *string `json:"status"`
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patch := customerdomain.Patch{
		FullName:     req.FullName,
		Email:        req.Email,
		PeriodMonths: req.PeriodMonths,
		AutoRenew:    req.AutoRenew,
	}

	if req.PlanID != nil {
		planID, err := snowflake.ParseString(strings.TrimSpace(*req.PlanID))
		if err != nil {
			AbortWithError(c, newValidationError("plan_id", "invalid_plan_id", "invalid plan_id"))
			return
		}
		plan, err := s.planRepo.FindByID(c.Request.Context(), s.db, planID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if plan == nil {
			AbortWithError(c, plandomain.ErrPlanNotFound)
			return
		}
		patch.PlanID = &plan.ID
	}

	if req.Status != nil {
		status := customerdomain.Status(strings.ToUpper(strings.TrimSpace(*req.Status)))
		switch status {
		case customerdomain.StatusActive, customerdomain.StatusDeactive, customerdomain.StatusSuspended:
			patch.Status = &status
		default:
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
	}

	cust, err := s.customerRepo.FindByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if cust == nil {
		AbortWithError(c, customerdomain.ErrCustomerNotFound)
		return
	}

	if err := s.customerRepo.Update(c.Request.Context(), s.db, id, patch); err != nil {
		AbortWithError(c, err)
		return
	}

	updated, err := s.customerRepo.FindByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (s *Server) ListExpiringCustomers(c *gin.Context) {
	days := 7
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("days", "invalid_days", "days must be a non-negative integer"))
			return
		}
		days = parsed
	}

	customers, err := s.customerRepo.FindExpiringWithin(c.Request.Context(), s.db, time.Now().UTC(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customers})
}

func (s *Server) ListCustomerInvoices(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoices, err := s.ledgerRepo.ListInvoices(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (s *Server) ListCustomerTransactions(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	txns, err := s.ledgerSvc.ListTransactions(c.Request.Context(), id, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txns})
}

func parseIDParam(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return 0, newValidationError("id", "invalid_id", "invalid id")
	}
	return id, nil
}
