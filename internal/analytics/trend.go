package analytics

import (
	"math"
	"sort"

	"github.com/Clark-Hu/cinescope/internal/domain"
)

// TrendPoint is the running average after the Index-th rating in submission order.
type TrendPoint struct {
	Index          int     `json:"index"`
	RunningAverage float64 `json:"average"`
}

// Direction summarises how the running average moved from the first to the last point.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// BuildTrend returns one point per well-formed rating, ordered by CreatedAt ascending.
// Ratings submitted at the same instant are ordered by row ID.
func BuildTrend(ratings []domain.Rating) []TrendPoint {
	ordered := make([]domain.Rating, 0, len(ratings))
	for _, r := range ratings {
		if r.Valid() {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	trend := make([]TrendPoint, 0, len(ordered))
	sum := 0
	for i, r := range ordered {
		sum += r.Value
		n := i + 1
		trend = append(trend, TrendPoint{
			Index:          n,
			RunningAverage: roundTo(float64(sum)/float64(n), 2),
		})
	}
	return trend
}

// TrendDirection compares the last running average with the first.
func TrendDirection(trend []TrendPoint) Direction {
	if len(trend) < 2 {
		return DirectionFlat
	}
	first, last := trend[0].RunningAverage, trend[len(trend)-1].RunningAverage
	switch {
	case last > first:
		return DirectionUp
	case last < first:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// roundTo rounds half away from zero to the given number of decimal places.
func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
