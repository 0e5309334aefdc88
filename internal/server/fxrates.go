package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// @Summary      Latest FX Snapshot
// @Description  Greatest as-of-date snapshot for a base currency
// @Tags         fx
// @Produce      json
// @Param        base query string false "Base currency, defaults to the configured base"
// @Router       /fx/latest [get]
func (s *Server) GetLatestRates(c *gin.Context) {
	base := strings.TrimSpace(c.Query("base"))
	if base == "" {
		base = s.cfg.FX.BaseCurrency
	}

	snapshot, err := s.fxSvc.Latest(c.Request.Context(), base)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

// @Summary      Refresh FX Snapshot
// @Description  Idempotent per-day snapshot refresh, service credential required
// @Tags         fx
// @Produce      json
// @Security     BearerAuth
// @Router       /fx/refresh [post]
func (s *Server) RefreshRates(c *gin.Context) {
	base := strings.TrimSpace(c.Query("base"))
	if base == "" {
		base = s.cfg.FX.BaseCurrency
	}

	fetched, err := s.fxSvc.RefreshIfMissing(c.Request.Context(), base, s.clockNow())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"base":    strings.ToUpper(base),
		"fetched": fetched,
	}})
}
