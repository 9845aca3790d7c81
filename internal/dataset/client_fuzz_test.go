package dataset

import "testing"

func FuzzConvertToResult(f *testing.F) {
	f.Add(7.8, 1200, 148, "PG-13", "Drama, Crime")

	f.Fuzz(func(t *testing.T, rating float64, count, runtime int, certificate, genre string) {
		resp := apiResponse{
			Rating:      &rating,
			NumRatings:  &count,
			Runtime:     &runtime,
			Certificate: optionalString(certificate),
			Genres:      []string{genre, " "},
		}

		result := convertToResult(resp)
		if result == nil {
			t.Fatalf("convertToResult returned nil result")
		}
		if result.OriginalRating != nil {
			if *result.OriginalRating < 1 || *result.OriginalRating > 10 {
				t.Fatalf("rating %v escaped the scale", *result.OriginalRating)
			}
		} else if result.OriginalNumRatings != nil {
			t.Fatalf("count without rating")
		}
		if result.OriginalNumRatings != nil && *result.OriginalNumRatings < 0 {
			t.Fatalf("negative count %d", *result.OriginalNumRatings)
		}
		if result.Runtime != nil && *result.Runtime <= 0 {
			t.Fatalf("non-positive runtime %d", *result.Runtime)
		}
		for _, g := range result.Genres {
			if g == "" {
				t.Fatalf("empty genre kept")
			}
		}
	})
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
