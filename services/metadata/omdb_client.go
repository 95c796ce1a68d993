package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"postergrid/models"
)

const omdbBaseURL = "https://www.omdbapi.com/"

// wonPattern pulls the headline win count out of OMDb's free-text awards
// citation, e.g. "Won 3 Oscars. 10 wins & 5 nominations total".
var wonPattern = regexp.MustCompile(`Won (\d+) Oscar`)

// omdbClient handles requests to the awards provider. It is deliberately
// not gated by the shared TMDB admission window: different provider, no
// coordinated backoff. A private minimum interval keeps it polite.
type omdbClient struct {
	apiKey string
	httpc  *http.Client

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

type omdbResponse struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
	Title    string `json:"Title"`
	Awards   string `json:"Awards"`
	ImdbID   string `json:"imdbID"`
}

func newOMDBClient(apiKey string, httpc *http.Client) *omdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &omdbClient{
		apiKey:      strings.TrimSpace(apiKey),
		httpc:       httpc,
		minInterval: 100 * time.Millisecond,
	}
}

func (c *omdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// awards looks up the citation for an IMDb id and parses it. A nil summary
// with nil error means the provider has no award data for the title.
func (c *omdbClient) awards(ctx context.Context, imdbID string) (*models.AwardSummary, error) {
	if !c.isConfigured() || imdbID == "" {
		return nil, nil
	}

	if err := c.throttleWait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s?apikey=%s&i=%s", omdbBaseURL, c.apiKey, imdbID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, models.Wrap(err, models.ErrNetwork, "omdb request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, models.NewAppError(models.ErrRateLimit, "omdb rate limit exceeded", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, models.NewAppError(models.ErrAPI, fmt.Sprintf("omdb request failed: %s", resp.Status),
			map[string]any{"status": resp.StatusCode})
	}

	var payload omdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, models.Wrap(err, models.ErrAPI, "omdb response decode failed")
	}
	// OMDb reports failures in-band with a 200 status.
	if !strings.EqualFold(payload.Response, "True") {
		return nil, nil
	}

	return parseAwards(payload.Awards), nil
}

// throttleWait reserves the next request slot, then waits for it outside
// the lock. Cancellation abandons the wait.
func (c *omdbClient) throttleWait(ctx context.Context) error {
	c.throttleMu.Lock()
	wait := c.minInterval - time.Since(c.lastRequest)
	if wait < 0 {
		wait = 0
	}
	c.lastRequest = time.Now().Add(wait)
	c.throttleMu.Unlock()

	if wait == 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseAwards extracts the win count from a citation string. Citations
// without a "Won N ..." headline (nominations-only titles) yield nil.
func parseAwards(citation string) *models.AwardSummary {
	citation = strings.TrimSpace(citation)
	if citation == "" || citation == "N/A" {
		return nil
	}
	m := wonPattern.FindStringSubmatch(citation)
	if m == nil {
		return nil
	}
	count, err := strconv.Atoi(m[1])
	if err != nil || count <= 0 {
		return nil
	}
	return &models.AwardSummary{Count: count, HasAwards: true}
}
