package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/sitepulse/sitepulse/internal/config"
)

// TrackerClient reads backlog and sprint state from a Jira-compatible agile
// tracker.
type TrackerClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewTrackerClient creates a tracker client. A nil httpClient gets a
// 30-second-timeout default.
func NewTrackerClient(httpClient *http.Client) *TrackerClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TrackerClient{
		client: httpClient,
		// Trackers rate-limit aggressively; stay well under
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// Backlog is the tracker-derived half of a digital snapshot.
type Backlog struct {
	TotalStoryPoints int
	CompletedPoints  int
	SprintVelocity   float64
}

type trackerSprint struct {
	ID              int       `json:"id"`
	State           string    `json:"state"`
	StartDate       time.Time `json:"startDate"`
	CompletedPoints float64   `json:"completedPoints"`
}

type sprintList struct {
	Values []trackerSprint `json:"values"`
}

type trackerIssue struct {
	Fields struct {
		// Story points live in a custom field on stock Jira installs
		StoryPoints *float64 `json:"customfield_10016"`
		Status      struct {
			StatusCategory struct {
				Name string `json:"name"`
			} `json:"statusCategory"`
		} `json:"status"`
	} `json:"fields"`
}

type searchResult struct {
	Issues []trackerIssue `json:"issues"`
}

// FetchBacklog pulls the board's sprints and issues and reduces them to
// backlog metrics. An empty board is reported as ErrNoDigitalData.
func (c *TrackerClient) FetchBacklog(ctx context.Context, cfg config.Tracker) (*Backlog, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("tracker not configured: %w", ErrNoDigitalData)
	}

	var sprints sprintList
	sprintURL := fmt.Sprintf("%s/rest/agile/1.0/board/%s/sprint", cfg.BaseURL, url.PathEscape(cfg.Board))
	if err := c.get(ctx, sprintURL, cfg, &sprints); err != nil {
		return nil, fmt.Errorf("fetching sprints: %w", err)
	}

	var issues searchResult
	query := url.Values{}
	query.Set("jql", "project = "+cfg.Board)
	query.Set("fields", "status,customfield_10016,created,updated")
	searchURL := cfg.BaseURL + "/rest/api/2/search?" + query.Encode()
	if err := c.get(ctx, searchURL, cfg, &issues); err != nil {
		return nil, fmt.Errorf("fetching issues: %w", err)
	}

	if len(sprints.Values) == 0 || len(issues.Issues) == 0 {
		return nil, fmt.Errorf("board %s has %d sprints and %d issues: %w",
			cfg.Board, len(sprints.Values), len(issues.Issues), ErrNoDigitalData)
	}

	var total, completed float64
	for _, issue := range issues.Issues {
		if issue.Fields.StoryPoints == nil {
			continue
		}
		total += *issue.Fields.StoryPoints
		if issue.Fields.Status.StatusCategory.Name == "Done" {
			completed += *issue.Fields.StoryPoints
		}
	}

	return &Backlog{
		TotalStoryPoints: int(math.Round(total)),
		CompletedPoints:  int(math.Round(completed)),
		SprintVelocity:   sprintVelocity(sprints.Values, completed),
	}, nil
}

// sprintVelocity averages the three most recent sprints. Boards too young
// for that fall back to completed points spread over the sprints they have.
func sprintVelocity(sprints []trackerSprint, completedPoints float64) float64 {
	if len(sprints) >= 3 {
		recent := make([]trackerSprint, len(sprints))
		copy(recent, sprints)
		sort.Slice(recent, func(i, j int) bool {
			return recent[i].StartDate.After(recent[j].StartDate)
		})

		sum := 0.0
		for _, s := range recent[:3] {
			sum += s.CompletedPoints
		}
		return sum / 3
	}
	return completedPoints / float64(max(len(sprints), 1))
}

func (c *TrackerClient) get(ctx context.Context, rawURL string, cfg config.Tracker, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case cfg.Username != "":
		req.SetBasicAuth(cfg.Username, cfg.Token)
	case cfg.Token != "":
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tracker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tracker returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
