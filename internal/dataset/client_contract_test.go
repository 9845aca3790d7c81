package dataset

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Clark-Hu/cinescope/internal/logging"
)

// TestHTTPClientSmoke checks that the client can parse at least one record from a live corpus.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("DATASET_URL")
	if baseURL == "" {
		t.Skip("DATASET_URL not provided")
	}
	apiKey := os.Getenv("DATASET_API_KEY")
	client, err := NewHTTPClient(baseURL, apiKey, 3*time.Second, logging.Nop())
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.Lookup(ctx, "The Shawshank Redemption")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if result.OriginalRating == nil {
		t.Fatalf("unexpected dataset payload: %+v", result)
	}
}
