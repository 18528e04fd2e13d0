package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/netbill/internal/payment/domain"
)

type createPaymentRequest struct {
	CustomerID string  `json:"customer_id"`
	Amount     float64 `json:"amount"`
	Discount   float64 `json:"discount"`
	Method     string  `json:"payment_method"`
	Reference  string  `json:"payment_reference"`
	Remarks    string  `json:"remarks"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer_id", "invalid customer_id"))
		return
	}

	result, err := s.paymentSvc.Allocate(c.Request.Context(), paymentdomain.AllocateRequest{
		CustomerID: customerID,
		Amount:     req.Amount,
		Discount:   req.Discount,
		Method:     strings.TrimSpace(req.Method),
		Reference:  strings.TrimSpace(req.Reference),
		Remarks:    strings.TrimSpace(req.Remarks),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
