package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	auditdomain "github.com/mcofie/itinero-web-sub003/internal/audit/domain"
	auditservice "github.com/mcofie/itinero-web-sub003/internal/audit/service"
)

type createTripRequest struct {
	Title string `json:"title"`
}

// @Summary      Create Trip
// @Description  Create a private trip owned by the caller
// @Tags         trips
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createTripRequest true "Create Trip Request"
// @Router       /trips [post]
func (s *Server) CreateTrip(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	trip, err := s.tripSvc.Create(c.Request.Context(), userID, req.Title)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trip})
}

type setTripPublicRequest struct {
	Public bool `json:"public"`
}

// @Summary      Toggle Trip Sharing
// @Description  Publish or unpublish a trip; publishing allocates a public id
// @Tags         trips
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string              true "Trip ID"
// @Param        request body setTripPublicRequest true "Set Public Request"
// @Router       /trips/{id}/public [post]
func (s *Server) SetTripPublic(c *gin.Context) {
	userID, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	tripID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || tripID <= 0 {
		AbortWithError(c, newValidationError("id", "invalid_trip_id", "trip id must be a valid id"))
		return
	}

	var req setTripPublicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	publicID, err := s.tripSvc.SetPublic(c.Request.Context(), snowflake.ID(tripID), userID, req.Public)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	action := auditdomain.ActionTripUnpublished
	if req.Public {
		action = auditdomain.ActionTripPublished
	}
	s.auditSvc.Write(c.Request.Context(), auditservice.Record{
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    userID,
		Action:     action,
		TargetType: "trip",
		TargetID:   strconv.FormatInt(tripID, 10),
		IPAddress:  c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"public":    req.Public,
		"public_id": publicID,
	}})
}

// @Summary      Shared Trip
// @Description  Unauthenticated share-page read by public id
// @Tags         trips
// @Produce      json
// @Param        publicId path string true "Public ID"
// @Router       /trips/shared/{publicId} [get]
func (s *Server) GetSharedTrip(c *gin.Context) {
	publicID := strings.TrimSpace(c.Param("publicId"))
	if publicID == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	trip, err := s.tripSvc.GetByPublicID(c.Request.Context(), publicID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trip})
}
