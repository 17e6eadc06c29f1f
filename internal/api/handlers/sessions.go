package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"tour-planner-service/internal/api/dto"
	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/services"
)

// SessionHandler exposes the planner's session-facing API over HTTP: start
// a session, apply one constraint update, read the current itinerary.
type SessionHandler struct {
	Planner *services.Planner
}

func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}

// Start creates a session from the initial constraints and plans the first
// itinerary.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSessionRequest
	defer r.Body.Close()
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	cs, err := constraintsFromRequest(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sessionID, it, err := h.Planner.StartSession(r.Context(), req.UserID, cs)
	if err != nil {
		var infeasible *domain.InfeasibleError
		switch {
		case errors.As(err, &infeasible):
			// The session still exists; the caller can relax a
			// constraint against this ID and retry.
			writeJSON(w, r, http.StatusUnprocessableEntity, dto.InfeasibleResponse{
				Error:     "infeasible constraints",
				SessionID: sessionID,
				Blocking:  infeasible.Blocking,
				Partial:   itineraryResponse(infeasible.Partial),
			})
		case errors.Is(err, domain.ErrInvalidConstraint):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			log.Printf("start session failed: %v", err)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.SessionResponse{
		SessionID: sessionID,
		State:     string(services.StatePlanned),
		Itinerary: itineraryResponse(it),
	})
}

// Update applies a single constraint change to the session and returns the
// repaired itinerary.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req dto.UpdateSessionRequest
	defer r.Body.Close()
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Field == "" {
		writeError(w, r, http.StatusBadRequest, "field is required")
		return
	}

	var value any
	if len(req.Value) > 0 {
		if err := json.Unmarshal(req.Value, &value); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid value")
			return
		}
	}

	it, err := h.Planner.Update(r.Context(), sessionID, req.Field, value)
	if err != nil {
		var infeasible *domain.InfeasibleError
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			writeError(w, r, http.StatusNotFound, "session not found")
		case errors.As(err, &infeasible):
			writeJSON(w, r, http.StatusUnprocessableEntity, dto.InfeasibleResponse{
				Error:     "infeasible constraints",
				SessionID: sessionID,
				Blocking:  infeasible.Blocking,
				Partial:   itineraryResponse(infeasible.Partial),
			})
		case errors.Is(err, domain.ErrInvalidConstraint):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			log.Printf("update session failed: session=%s %v", sessionID, err)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, r, http.StatusOK, dto.SessionResponse{
		SessionID: sessionID,
		State:     string(services.StatePlanned),
		Itinerary: itineraryResponse(it),
	})
}

// Get returns the session's current itinerary and plan state.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	it, state, err := h.Planner.Itinerary(sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			writeError(w, r, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("get itinerary failed: session=%s %v", sessionID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.SessionResponse{
		SessionID: sessionID,
		State:     string(state),
		Itinerary: itineraryResponse(it),
	})
}

func constraintsFromRequest(req dto.StartSessionRequest) (domain.Constraints, error) {
	mode, err := domain.ParseTransportMode(req.Mode)
	if err != nil {
		return domain.Constraints{}, err
	}

	pinned := make([]domain.PinnedStop, 0, len(req.Pinned))
	for _, p := range req.Pinned {
		ps := domain.PinnedStop{StopID: p.StopID}
		if p.Window != nil {
			ps.Window = &domain.TimeWindow{Open: p.Window.Open, Close: p.Window.Close}
		}
		pinned = append(pinned, ps)
	}

	cs := domain.Constraints{
		City:               req.City,
		DayStart:           req.DayStart,
		DayEnd:             req.DayEnd,
		Budget:             req.Budget,
		Mode:               mode,
		Interests:          req.Interests,
		Pinned:             pinned,
		ExcludedCategories: req.ExcludeCategories,
		ExcludedStops:      req.ExcludeStops,
	}
	if err := cs.Validate(); err != nil {
		return domain.Constraints{}, err
	}
	return cs, nil
}
