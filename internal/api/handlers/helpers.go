package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"tour-planner-service/internal/api/dto"
	"tour-planner-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

func itineraryResponse(it *domain.Itinerary) *dto.ItineraryResponse {
	if it == nil {
		return nil
	}

	res := &dto.ItineraryResponse{
		Stops:              make([]dto.ItineraryStopResponse, 0, len(it.Stops)),
		TotalCost:          it.TotalCost,
		TotalTravelSeconds: int(it.TotalTravel.Seconds()),
		SlackSeconds:       int(it.Slack.Seconds()),
		Utility:            it.Utility,
	}

	for _, s := range it.Stops {
		stop := dto.ItineraryStopResponse{
			StopID:     s.Stop.ID,
			Name:       s.Stop.Name,
			Categories: s.Stop.Categories,
			ArriveAt:   s.ArriveAt,
			DepartAt:   s.DepartAt,
			Cost:       s.Stop.Cost,
		}
		if s.Leg != nil {
			stop.Leg = &dto.TravelLegResponse{
				Mode:            string(s.Leg.Mode),
				DurationSeconds: int(s.Leg.Duration.Seconds()),
				Cost:            s.Leg.Cost,
			}
		}
		res.Stops = append(res.Stops, stop)
	}

	return res
}
