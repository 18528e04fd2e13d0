package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	plandomain "github.com/smallbiznis/netbill/internal/plan/domain"
)

type createPlanRequest struct {
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	CGSTPercentage float64 `json:"cgst_percentage"`
	SGSTPercentage float64 `json:"sgst_percentage"`
	IGSTPercentage float64 `json:"igst_percentage"`
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		AbortWithError(c, newValidationError("name", "missing_name", "name is required"))
		return
	}
	if req.Price < 0 {
		AbortWithError(c, newValidationError("price", "invalid_price", "price must not be negative"))
		return
	}

	plan := &plandomain.Plan{
		ID:             s.genID.Generate(),
		Name:           strings.TrimSpace(req.Name),
		Price:          req.Price,
		CGSTPercentage: req.CGSTPercentage,
		SGSTPercentage: req.SGSTPercentage,
		IGSTPercentage: req.IGSTPercentage,
	}
	if err := s.planRepo.Insert(c.Request.Context(), s.db, plan); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plan})
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planRepo.List(c.Request.Context(), s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plans})
}
