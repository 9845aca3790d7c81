package analytics

import (
	"math"

	"github.com/Clark-Hu/cinescope/internal/domain"
)

// Kernel shapes the Gaussian-like curve used to spread a movie's original rating count
// across score buckets. The defaults are calibration constants, not derived values.
type Kernel struct {
	Width float64
	Scale float64
}

// DefaultKernel preserves the calibration of the original catalog charts.
var DefaultKernel = Kernel{Width: 4, Scale: 2.5}

func (k Kernel) orDefault() Kernel {
	if k.Width <= 0 || math.IsNaN(k.Width) || math.IsInf(k.Width, 0) {
		k.Width = DefaultKernel.Width
	}
	if k.Scale <= 0 || math.IsNaN(k.Scale) || math.IsInf(k.Scale, 0) {
		k.Scale = DefaultKernel.Scale
	}
	return k
}

// Contribution estimates how many of count original ratings centred on mean fell in score.
func (k Kernel) Contribution(score int, mean float64, count int) int {
	if count <= 0 {
		return 0
	}
	k = k.orDefault()
	distance := math.Abs(float64(score) - mean)
	return int(math.Round(float64(count) * math.Exp(-(distance*distance)/k.Width) / k.Scale))
}

// EstimateCatalogDistribution approximates the combined score distribution of the whole
// catalog. Only the mean and count of each movie's original corpus are known, so that
// portion is a best-effort estimate from the kernel; live ratings are counted exactly and
// are not filtered by movie.
func EstimateCatalogDistribution(movies []domain.MovieAggregate, live []domain.Rating, kernel Kernel) Distribution {
	d := emptyDistribution()
	for _, m := range movies {
		mean, count := m.OriginalWeight()
		if count <= 0 {
			continue
		}
		for i := range d {
			d[i].Count += kernel.Contribution(d[i].Score, mean, count)
		}
	}
	for _, r := range live {
		if !r.Valid() {
			continue
		}
		d[r.Value-domain.MinRating].Count++
	}
	return d
}
