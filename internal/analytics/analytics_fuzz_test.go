package analytics

import (
	"testing"
	"time"

	"github.com/Clark-Hu/cinescope/internal/domain"
)

func FuzzBuildTrend(f *testing.F) {
	f.Add([]byte{8, 6, 10})
	f.Add([]byte{})
	f.Add([]byte{0, 11, 255, 3})

	f.Fuzz(func(t *testing.T, raw []byte) {
		ratings := make([]domain.Rating, 0, len(raw))
		valid := 0
		for i, b := range raw {
			r := domain.Rating{ID: int64(i), Value: int(b), CreatedAt: epoch.Add(time.Duration(int(b)%4) * time.Second)}
			if r.Valid() {
				valid++
			}
			ratings = append(ratings, r)
		}

		trend := BuildTrend(ratings)
		if len(trend) != valid {
			t.Fatalf("trend length = %d, want %d", len(trend), valid)
		}
		for _, p := range trend {
			if p.RunningAverage < domain.MinRating || p.RunningAverage > domain.MaxRating {
				t.Fatalf("running average %v out of range", p.RunningAverage)
			}
		}
		if got := BuildDistribution(ratings).Total(); got != valid {
			t.Fatalf("distribution total = %d, want %d", got, valid)
		}
	})
}
