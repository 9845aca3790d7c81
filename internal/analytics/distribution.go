package analytics

import "github.com/Clark-Hu/cinescope/internal/domain"

// NumBuckets is the number of score buckets in a distribution (scores 1 through 10).
const NumBuckets = domain.MaxRating - domain.MinRating + 1

// Bucket is the count of ratings with a given score.
type Bucket struct {
	Score int `json:"rating"`
	Count int `json:"count"`
}

// Distribution holds one bucket per score, ordered by score ascending.
type Distribution [NumBuckets]Bucket

// Total sums the bucket counts.
func (d Distribution) Total() int {
	total := 0
	for _, b := range d {
		total += b.Count
	}
	return total
}

// Count returns the count for score, or zero when score is out of range.
func (d Distribution) Count(score int) int {
	if score < domain.MinRating || score > domain.MaxRating {
		return 0
	}
	return d[score-domain.MinRating].Count
}

func emptyDistribution() Distribution {
	var d Distribution
	for i := range d {
		d[i].Score = domain.MinRating + i
	}
	return d
}

// BuildDistribution counts ratings per score. Malformed ratings are skipped.
func BuildDistribution(ratings []domain.Rating) Distribution {
	d := emptyDistribution()
	for _, r := range ratings {
		if !r.Valid() {
			continue
		}
		d[r.Value-domain.MinRating].Count++
	}
	return d
}
