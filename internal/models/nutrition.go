package models

import (
	"time"
)

// Nutrients holds the macronutrient content of a meal
type Nutrients struct {
	Calories float64 `json:"calories"` // kcal
	Protein  float64 `json:"protein"`  // grams
	Carbs    float64 `json:"carbs"`    // grams
	Fat      float64 `json:"fat"`      // grams
}

// Add returns the field-wise sum of n and o
func (n Nutrients) Add(o Nutrients) Nutrients {
	return Nutrients{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Carbs:    n.Carbs + o.Carbs,
		Fat:      n.Fat + o.Fat,
	}
}

// NutrientEstimate is the result of one estimation request
type NutrientEstimate struct {
	Nutrients
	Explanation string `json:"explanation,omitempty"`
}

// Meal is a logged meal. Meals are never updated in place.
type Meal struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"` // ms since epoch
	Nutrients
	Explanation string `json:"explanation,omitempty"`
}

// NewMeal builds a Meal from an accepted estimate
func NewMeal(id, description string, at time.Time, est *NutrientEstimate) *Meal {
	return &Meal{
		ID:          id,
		Description: description,
		Timestamp:   at.UnixMilli(),
		Nutrients:   est.Nutrients,
		Explanation: est.Explanation,
	}
}

// Time returns the meal timestamp in loc
func (m *Meal) Time(loc *time.Location) time.Time {
	return time.UnixMilli(m.Timestamp).In(loc)
}

// SameDay reports whether the meal was logged on the calendar day of day,
// in day's location
func (m *Meal) SameDay(day time.Time) bool {
	t := m.Time(day.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Sum adds up the nutrients of meals. The order of meals does not matter.
func Sum(meals []Meal) Nutrients {
	var total Nutrients
	for _, m := range meals {
		total = total.Add(m.Nutrients)
	}
	return total
}

// DailyAggregate is the derived total for one calendar day
type DailyAggregate struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
	Nutrients
}

// RangeAggregate is the derived total for meals in [From, To)
type RangeAggregate struct {
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Count int       `json:"count"`
	Nutrients
}

// LookupRequest is the input of a model-initiated lookup tool call
type LookupRequest struct {
	Query string `json:"query"`
}

// LookupResult is the output of a lookup tool call
type LookupResult struct {
	SearchResult string `json:"searchResult"`
}
