package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody bounds the raw payload read; provider envelopes are
// small.
const maxWebhookBody = 1 << 20

type initiatePaymentRequest struct {
	QuoteID string `json:"quote_id"`
	Email   string `json:"email"`
}

// @Summary      Initiate Paystack Payment
// @Description  Open a checkout session for a pending quote
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body initiatePaymentRequest true "Initiate Payment Request"
// @Router       /paystack/init [post]
func (s *Server) InitiatePayment(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	quoteID, err := strconv.ParseInt(req.QuoteID, 10, 64)
	if err != nil || quoteID <= 0 {
		AbortWithError(c, newValidationError("quote_id", "invalid_quote_id", "quote_id must be a valid id"))
		return
	}

	resp, err := s.paymentSvc.Initiate(c.Request.Context(), userID, snowflake.ID(quoteID), req.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Paystack Webhook
// @Description  Signature-authenticated payment notifications
// @Tags         payments
// @Accept       json
// @Produce      json
// @Router       /paystack/webhook [post]
func (s *Server) PaystackWebhook(c *gin.Context) {
	// The signature covers the exact raw bytes; read before any
	// decoding touches the body.
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	outcome, err := s.paymentSvc.IngestWebhook(c.Request.Context(), "paystack", payload, c.Request.Header)
	if err != nil {
		// Transient storage failure: a non-2xx asks the provider to
		// redeliver.
		s.log.Error("webhook ingest failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "retry"})
		return
	}

	// Every terminal outcome, including bad signatures, is acknowledged
	// so the provider stops redelivering.
	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}
