package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup deletes rows created by integration test users. Routed
// only outside production; test users carry a shared id prefix.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	if err := s.deleteUserData(c.Request.Context(), prefix); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) deleteUserData(ctx context.Context, prefix string) error {
	like := prefix + "%"
	statements := []string{
		`DELETE FROM points_ledger WHERE user_id LIKE ?`,
		`DELETE FROM points_quotes WHERE user_id LIKE ?`,
		`DELETE FROM points_events WHERE user_id LIKE ?`,
		`DELETE FROM trips WHERE user_id LIKE ?`,
		`DELETE FROM audit_logs WHERE actor_id LIKE ?`,
	}
	for _, statement := range statements {
		if err := s.db.WithContext(ctx).Exec(statement, like).Error; err != nil {
			return err
		}
	}
	return nil
}
