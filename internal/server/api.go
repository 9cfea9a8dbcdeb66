package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/franckalain/nutrisnap/internal/models"
	"github.com/franckalain/nutrisnap/internal/store"
)

// MealRequest is the request body for estimating or logging a meal
type MealRequest struct {
	Description string `json:"description"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req MealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	description, est, err := s.estimateMeal(r.Context(), req.Description)
	if err != nil {
		log.Printf("Error estimating nutrients: %v", err)
		writeError(w, statusFor(err), errorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"description": description,
		"estimate":    est,
	})
}

func (s *Server) handleLogMeal(w http.ResponseWriter, r *http.Request) {
	var req MealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meal, err := s.logMeal(r.Context(), req.Description)
	if err != nil {
		log.Printf("Error logging meal: %v", err)
		if errors.Is(err, store.ErrPersist) {
			s.broadcastHistory()
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": errorMessage(err),
				"meal":  meal,
			})
			return
		}
		writeError(w, statusFor(err), errorMessage(err))
		return
	}

	s.broadcastHistory()
	writeJSON(w, http.StatusCreated, meal)
}

func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	meals := s.store.List()
	if limit > 0 && len(meals) > limit {
		meals = meals[:limit]
	}
	if meals == nil {
		meals = []models.Meal{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"meals": meals,
		"count": len(meals),
	})
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	err := s.store.Remove(r.Context(), r.PathValue("id"))
	s.broadcastHistory()
	if err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearToday(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.ClearDay(r.Context(), s.now())
	s.broadcastHistory()
	if err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	day, today := s.store.Today(now)
	if today == nil {
		today = []models.Meal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"day_total":  day,
		"week_total": s.store.Week(now),
		"today":      today,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
