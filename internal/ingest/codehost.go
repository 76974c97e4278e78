package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sitepulse/sitepulse/internal/config"
)

// activityWindowDays is the lookback for commit frequency.
const activityWindowDays = 30

// CodeHostClient reads repository activity from a GitHub-compatible API.
type CodeHostClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewCodeHostClient creates a code host client. A nil httpClient gets a
// 30-second-timeout default.
func NewCodeHostClient(httpClient *http.Client) *CodeHostClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &CodeHostClient{
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// RepoActivity is the code-host-derived half of a digital snapshot.
type RepoActivity struct {
	// CommitFrequency is commits per day over the activity window
	CommitFrequency float64
	// PRMergeRate is merged pull requests over all pull requests
	PRMergeRate float64
}

type hostCommit struct {
	Commit struct {
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type hostPull struct {
	MergedAt *time.Time `json:"merged_at"`
}

// FetchActivity pulls recent commits and pull requests and reduces them to
// activity rates. A quiet repository legitimately scores zero on both.
func (c *CodeHostClient) FetchActivity(ctx context.Context, cfg config.CodeHost) (*RepoActivity, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("code host not configured: %w", ErrNoDigitalData)
	}

	var commits []hostCommit
	if err := c.get(ctx, fmt.Sprintf("%s/repos/%s/commits", cfg.BaseURL, cfg.Repo), cfg, &commits); err != nil {
		return nil, fmt.Errorf("fetching commits: %w", err)
	}

	var pulls []hostPull
	if err := c.get(ctx, fmt.Sprintf("%s/repos/%s/pulls?state=all", cfg.BaseURL, cfg.Repo), cfg, &pulls); err != nil {
		return nil, fmt.Errorf("fetching pull requests: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -activityWindowDays)
	recent := 0
	for _, commit := range commits {
		if commit.Commit.Author.Date.After(cutoff) {
			recent++
		}
	}

	activity := &RepoActivity{
		CommitFrequency: float64(recent) / activityWindowDays,
	}

	if len(pulls) > 0 {
		merged := 0
		for _, pull := range pulls {
			if pull.MergedAt != nil {
				merged++
			}
		}
		activity.PRMergeRate = float64(merged) / float64(len(pulls))
	}

	return activity, nil
}

func (c *CodeHostClient) get(ctx context.Context, rawURL string, cfg config.CodeHost, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "token "+cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("code host request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("code host returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
