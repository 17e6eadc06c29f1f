package dto

import (
	"encoding/json"
	"time"
)

type WindowRequest struct {
	Open  time.Time `json:"open"`
	Close time.Time `json:"close"`
}

type PinnedStopRequest struct {
	StopID string         `json:"stop_id"`
	Window *WindowRequest `json:"window,omitempty"`
}

type StartSessionRequest struct {
	UserID            string              `json:"user_id"`
	City              string              `json:"city"`
	DayStart          time.Time           `json:"day_start"`
	DayEnd            time.Time           `json:"day_end"`
	Budget            float64             `json:"budget"`
	Mode              string              `json:"mode"`
	Interests         map[string]float64  `json:"interests"`
	Pinned            []PinnedStopRequest `json:"pinned"`
	ExcludeCategories []string            `json:"exclude_categories"`
	ExcludeStops      []string            `json:"exclude_stops"`
}

type UpdateSessionRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type TravelLegResponse struct {
	Mode            string  `json:"mode"`
	DurationSeconds int     `json:"duration_seconds"`
	Cost            float64 `json:"cost"`
}

type ItineraryStopResponse struct {
	StopID     string             `json:"stop_id"`
	Name       string             `json:"name"`
	Categories []string           `json:"categories"`
	ArriveAt   time.Time          `json:"arrive_at"`
	DepartAt   time.Time          `json:"depart_at"`
	Cost       float64            `json:"cost"`
	Leg        *TravelLegResponse `json:"leg_to_next,omitempty"`
}

type ItineraryResponse struct {
	Stops              []ItineraryStopResponse `json:"stops"`
	TotalCost          float64                 `json:"total_cost"`
	TotalTravelSeconds int                     `json:"total_travel_seconds"`
	SlackSeconds       int                     `json:"slack_seconds"`
	Utility            float64                 `json:"utility"`
}

type SessionResponse struct {
	SessionID string             `json:"session_id"`
	State     string             `json:"state"`
	Itinerary *ItineraryResponse `json:"itinerary,omitempty"`
}

type InfeasibleResponse struct {
	Error     string             `json:"error"`
	SessionID string             `json:"session_id"`
	Blocking  []string           `json:"blocking"`
	Partial   *ItineraryResponse `json:"partial,omitempty"`
}
