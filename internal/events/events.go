package events

// Points event types published through the outbox.
const (
	EventPointsCredited  = "points.credited"
	EventTripPublished   = "trip.published"
	EventTripUnpublished = "trip.unpublished"
)

// PointsCreditedPayload captures the minimal data downstream consumers
// need to react to a top-up.
type PointsCreditedPayload struct {
	UserID    string `json:"user_id"`
	QuoteID   string `json:"quote_id,omitempty"`
	Reference string `json:"reference"`
	Points    int64  `json:"points"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p PointsCreditedPayload) ToMap() map[string]any {
	payload := map[string]any{
		"user_id":   p.UserID,
		"reference": p.Reference,
		"points":    p.Points,
	}
	if p.QuoteID != "" {
		payload["quote_id"] = p.QuoteID
	}
	return payload
}
