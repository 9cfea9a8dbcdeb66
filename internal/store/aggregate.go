package store

import (
	"time"

	"github.com/franckalain/nutrisnap/internal/models"
)

// DailyAggregate sums the meals that fall on now's local calendar day and
// returns them alongside the total
func DailyAggregate(meals []models.Meal, now time.Time) (models.DailyAggregate, []models.Meal) {
	var today []models.Meal
	for _, m := range meals {
		if m.SameDay(now) {
			today = append(today, m)
		}
	}
	return models.DailyAggregate{
		Date:      now.Format("2006-01-02"),
		Count:     len(today),
		Nutrients: models.Sum(today),
	}, today
}

// RangeAggregate sums the meals with timestamps in [from, to)
func RangeAggregate(meals []models.Meal, from, to time.Time) models.RangeAggregate {
	var in []models.Meal
	for _, m := range meals {
		t := m.Time(from.Location())
		if !t.Before(from) && t.Before(to) {
			in = append(in, m)
		}
	}
	return models.RangeAggregate{
		From:      from,
		To:        to,
		Count:     len(in),
		Nutrients: models.Sum(in),
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
