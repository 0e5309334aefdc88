package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/mcofie/itinero-web-sub003/internal/ledger/domain"
)

type createQuoteRequest struct {
	Points int64 `json:"points"`
}

// @Summary      Create Points Quote
// @Description  Price a points purchase at the current unit price
// @Tags         points
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createQuoteRequest true "Create Quote Request"
// @Router       /points/quote [post]
func (s *Server) CreateQuote(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quote, err := s.quoteSvc.Create(c.Request.Context(), userID, req.Points)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// @Summary      Points Balance
// @Description  Current balance derived from the ledger
// @Tags         points
// @Produce      json
// @Security     BearerAuth
// @Router       /points/balance [get]
func (s *Server) GetBalance(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	balance, err := s.ledgerSvc.BalanceOf(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"balance": balance}})
}

type historyQuery struct {
	Reason    string `form:"reason"`
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// @Summary      Points History
// @Description  Ledger entries newest first, cursor paginated
// @Tags         points
// @Produce      json
// @Security     BearerAuth
// @Param        page_token query string false "Cursor token"
// @Param        page_size  query int    false "Page size"
// @Router       /points/history [get]
func (s *Server) GetHistory(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query historyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	page, err := s.ledgerSvc.Entries(c.Request.Context(), ledgerdomain.ListRequest{
		UserID:    userID,
		Reason:    query.Reason,
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":            page.Entries,
		"next_page_token": page.NextPageToken,
	})
}
