package models

import (
	"testing"
	"time"
)

func TestSumIsOrderIndependent(t *testing.T) {
	meals := []Meal{
		{ID: "a", Nutrients: Nutrients{Calories: 100, Protein: 1, Carbs: 10, Fat: 2}},
		{ID: "b", Nutrients: Nutrients{Calories: 250, Protein: 12, Carbs: 30, Fat: 8}},
		{ID: "c", Nutrients: Nutrients{Calories: 50, Protein: 0.5, Carbs: 4, Fat: 1}},
	}
	reversed := []Meal{meals[2], meals[1], meals[0]}

	want := Nutrients{Calories: 400, Protein: 13.5, Carbs: 44, Fat: 11}
	if got := Sum(meals); got != want {
		t.Fatalf("Sum = %+v, want %+v", got, want)
	}
	if got := Sum(reversed); got != want {
		t.Fatalf("Sum(reversed) = %+v, want %+v", got, want)
	}
	if got := Sum(nil); got != (Nutrients{}) {
		t.Fatalf("Sum(nil) = %+v, want zero", got)
	}
}

func TestMealSameDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"start of day", time.Date(2024, 3, 10, 0, 0, 0, 0, loc), true},
		{"end of day", time.Date(2024, 3, 10, 23, 59, 59, 0, loc), true},
		{"previous day", time.Date(2024, 3, 9, 23, 59, 59, 0, loc), false},
		// 20:00 UTC on the 9th is already the 10th in IST
		{"other zone", time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		m := Meal{Timestamp: tc.at.UnixMilli()}
		if got := m.SameDay(day); got != tc.want {
			t.Errorf("%s: SameDay = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewMealCopiesEstimate(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	est := &NutrientEstimate{
		Nutrients:   Nutrients{Calories: 320, Protein: 10, Carbs: 40, Fat: 12},
		Explanation: "General Assumptions:\n* Standard portion.",
	}
	m := NewMeal("id-1", "2 idli with sambar", at, est)
	if m.Timestamp != 1700000000000 || m.Nutrients != est.Nutrients || m.Explanation != est.Explanation {
		t.Fatalf("unexpected meal %+v", m)
	}
}
