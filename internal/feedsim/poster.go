package feedsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/pkg/logger"
)

// Poster delivers generated games to a running service over HTTP.
type Poster struct {
	baseURL string
	client  *http.Client
	log     logger.Logger
}

// NewPoster creates a Poster for the service at baseURL.
func NewPoster(baseURL string) *Poster {
	return &Poster{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logger.Named("feedsim-poster"),
	}
}

// gamePayload mirrors the POST /games wire shape.
type gamePayload struct {
	EventID    string  `json:"event_id"`
	TeamA      string  `json:"team_a"`
	TeamB      string  `json:"team_b"`
	ScoreA     float64 `json:"score_a"`
	ScoreB     float64 `json:"score_b"`
	HomeA      bool    `json:"home_a"`
	PlayedAt   string  `json:"played_at"`
	Importance float64 `json:"importance,omitempty"`
}

// Post sends the games in order, retrying once on backpressure.
func (p *Poster) Post(ctx context.Context, games []model.GameRecord) error {
	for i, g := range games {
		if err := p.postOne(ctx, g); err != nil {
			return fmt.Errorf("posting game %d/%d: %w", i+1, len(games), err)
		}
	}
	p.log.Info(ctx, "season posted", logger.Int("games", len(games)))
	return nil
}

func (p *Poster) postOne(ctx context.Context, g model.GameRecord) error {
	body, err := json.Marshal(gamePayload{
		EventID:    g.EventID,
		TeamA:      g.TeamA,
		TeamB:      g.TeamB,
		ScoreA:     g.ScoreA,
		ScoreB:     g.ScoreB,
		HomeA:      g.HomeA,
		PlayedAt:   g.PlayedAt.Format(time.RFC3339),
		Importance: g.Importance,
	})
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/games", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("post game: %w", err)
		}
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests && attempt == 0:
			// Backpressure: give the workers a moment to drain.
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			return fmt.Errorf("post game: unexpected status %d", resp.StatusCode)
		}
	}
	return fmt.Errorf("post game: backpressure persisted")
}
