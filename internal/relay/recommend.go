package relay

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/donovanmchenry/Chatify/internal/formatter"
	"github.com/donovanmchenry/Chatify/internal/metrics"
	"github.com/donovanmchenry/Chatify/internal/services"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

// Fixed replies of the recommendation path.
const (
	NotEnoughHistoryMessage = "I don't have enough of your listening history yet to recommend anything. Listen to a few more songs on Spotify and ask me again!"
	NoResultsMessage        = "Spotify didn't return any recommendations for your listening history this time. Try asking again later."
	ApologyMessage          = "Sorry, I couldn't fetch music recommendations right now. Please try again later."
)

const (
	defaultTopLimit = 2
	maxLimit        = 5
)

// Recommendation results reported to metrics.
const (
	resultOK        = "ok"
	resultNoHistory = "no_history"
	resultEmpty     = "empty"
	resultError     = "error"
)

// ListeningHistory is the slice of the Spotify Web API the recommender reads.
//
// Implemented by [services.SpotifyService].
type ListeningHistory interface {
	TopArtists(ctx context.Context, accessToken, timeRange string, limit int) ([]services.SpotifyArtist, error)
	TopTracks(ctx context.Context, accessToken, timeRange string, limit int) ([]services.SpotifyTrack, error)
	Recommendations(ctx context.Context, accessToken string, seedArtists, seedTracks []string, limit int) ([]services.SpotifyTrack, error)
}

// Recommender builds recommendation replies from a user's long-term top artists and tracks.
type Recommender struct {
	history  ListeningHistory
	topLimit int
	limit    int
	logger   *log.Logger
	recorder *metrics.Recorder
}

// NewRecommender creates a Recommender. Non-positive limits fall back to defaults and limit is capped at 5.
func NewRecommender(history ListeningHistory, cfg shared.RecommendationsConfig, logger *log.Logger, recorder *metrics.Recorder) *Recommender {
	topLimit := cfg.TopLimit
	if topLimit <= 0 {
		topLimit = defaultTopLimit
	}
	limit := cfg.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	return &Recommender{
		history:  history,
		topLimit: topLimit,
		limit:    limit,
		logger:   shared.WithLogger(logger, "component", "recommender"),
		recorder: recorder,
	}
}

// Recommend returns the reply for a recommendation request. Failures are logged and answered with [ApologyMessage].
func (r *Recommender) Recommend(ctx context.Context, accessToken string) string {
	reply, result, err := r.recommend(ctx, accessToken)
	r.recorder.RecordRecommendation(result)
	if err != nil {
		r.logger.Error("recommendation failed", "err", err)
		return ApologyMessage
	}
	return reply
}

func (r *Recommender) recommend(ctx context.Context, accessToken string) (string, string, error) {
	var (
		artists []services.SpotifyArtist
		tracks  []services.SpotifyTrack
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		artists, err = r.history.TopArtists(gctx, accessToken, services.TimeRangeLong, r.topLimit)
		return err
	})
	g.Go(func() error {
		var err error
		tracks, err = r.history.TopTracks(gctx, accessToken, services.TimeRangeLong, r.topLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", resultError, fmt.Errorf("%w: top items: %v", shared.ErrRecommendationFetchFailed, err)
	}

	if len(artists) == 0 && len(tracks) == 0 {
		return NotEnoughHistoryMessage, resultNoHistory, nil
	}

	seedArtists := make([]string, 0, len(artists))
	for _, a := range artists {
		seedArtists = append(seedArtists, a.ID)
	}
	seedTracks := make([]string, 0, len(tracks))
	for _, t := range tracks {
		seedTracks = append(seedTracks, t.ID)
	}

	recommended, err := r.history.Recommendations(ctx, accessToken, seedArtists, seedTracks, r.limit)
	if err != nil {
		return "", resultError, fmt.Errorf("%w: recommendations: %v", shared.ErrRecommendationFetchFailed, err)
	}
	if len(recommended) == 0 {
		return NoResultsMessage, resultEmpty, nil
	}
	if len(recommended) > r.limit {
		recommended = recommended[:r.limit]
	}

	return formatter.Recommendations(recommended), resultOK, nil
}
