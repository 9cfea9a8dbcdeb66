package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/franckalain/nutrisnap/internal/estimate"
	"github.com/franckalain/nutrisnap/internal/models"
	"github.com/franckalain/nutrisnap/internal/store"
)

const (
	minDescriptionLen = 3
	maxDescriptionLen = 500
)

var errInvalidDescription = errors.New("invalid meal description")

// ValidateDescription applies the form limits of the meal input. Blank
// input is reported the same way the estimation service reports it.
func ValidateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	n := utf8.RuneCountInString(description)
	switch {
	case n == 0:
		return "", estimate.ErrEmptyDescription
	case n < minDescriptionLen:
		return "", fmt.Errorf("%w: meal description must be at least %d characters", errInvalidDescription, minDescriptionLen)
	case n > maxDescriptionLen:
		return "", fmt.Errorf("%w: meal description must be %d characters or less", errInvalidDescription, maxDescriptionLen)
	}
	return description, nil
}

// estimateMeal validates the description and asks the estimator
func (s *Server) estimateMeal(ctx context.Context, description string) (string, *models.NutrientEstimate, error) {
	description, err := ValidateDescription(description)
	if err != nil {
		return "", nil, err
	}
	est, err := s.estimator.Estimate(ctx, description)
	if err != nil {
		return "", nil, err
	}
	return description, est, nil
}

// recordMeal turns an accepted estimate into a Meal and appends it. On a
// persistence error the meal is returned too, since it is in the log.
func (s *Server) recordMeal(ctx context.Context, description string, est *models.NutrientEstimate) (*models.Meal, error) {
	meal := models.NewMeal(uuid.New().String(), description, s.now(), est)
	if err := s.store.Append(ctx, *meal); err != nil {
		if errors.Is(err, store.ErrPersist) {
			return meal, err
		}
		return nil, err
	}
	return meal, nil
}

// logMeal estimates description and records the result as a new meal.
// A failed estimation never creates a meal.
func (s *Server) logMeal(ctx context.Context, description string) (*models.Meal, error) {
	description, est, err := s.estimateMeal(ctx, description)
	if err != nil {
		return nil, err
	}
	return s.recordMeal(ctx, description, est)
}

// History is the meal log with its running totals
type History struct {
	Items     []models.Meal         `json:"items"`
	DayTotal  models.DailyAggregate `json:"day_total"`
	WeekTotal models.RangeAggregate `json:"week_total"`
}

func (s *Server) history(limit int) History {
	now := s.now()
	items := s.store.List()
	day, _ := store.DailyAggregate(items, now)
	week := s.store.Week(now)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []models.Meal{}
	}
	return History{Items: items, DayTotal: day, WeekTotal: week}
}

// errorMessage renders err for the client
func errorMessage(err error) string {
	switch {
	case errors.Is(err, estimate.ErrEmptyDescription):
		return "Meal description cannot be empty."
	case errors.Is(err, errInvalidDescription):
		return strings.TrimPrefix(err.Error(), errInvalidDescription.Error()+": ")
	case errors.Is(err, store.ErrPersist):
		return "Could not save meal history: " + err.Error()
	case errors.Is(err, estimate.ErrModel), errors.Is(err, estimate.ErrInvalidOutput):
		return "Failed to estimate nutrients: " + err.Error()
	}
	return err.Error()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, estimate.ErrEmptyDescription), errors.Is(err, errInvalidDescription):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, estimate.ErrModel), errors.Is(err, estimate.ErrInvalidOutput):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
