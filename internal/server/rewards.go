package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// @Summary      Verify Reward
// @Description  Stateless reconciliation read for one payment reference
// @Tags         rewards
// @Produce      json
// @Security     BearerAuth
// @Param        reference query string true "Provider payment reference"
// @Router       /rewards/verify [get]
func (s *Server) VerifyReward(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	reference := strings.TrimSpace(c.Query("reference"))
	if reference == "" {
		AbortWithError(c, newValidationError("reference", "invalid_reference", "reference is required"))
		return
	}

	status, err := s.reconciler.CheckCredited(c.Request.Context(), userID, reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"ok":       true,
		"credited": status.Credited,
	}
	if status.Credited {
		resp["balance"] = status.Balance
	} else {
		resp["message"] = "still verifying"
	}
	c.JSON(http.StatusOK, resp)
}
