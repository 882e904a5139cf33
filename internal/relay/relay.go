package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/donovanmchenry/Chatify/internal/metrics"
	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/services"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

// Relay answers chat turns for a session.
type Relay struct {
	completer   services.Completer
	recommender *Recommender
	logger      *log.Logger
	recorder    *metrics.Recorder
}

// New creates a Relay. recorder may be nil.
func New(completer services.Completer, recommender *Recommender, logger *log.Logger, recorder *metrics.Recorder) *Relay {
	return &Relay{
		completer:   completer,
		recommender: recommender,
		logger:      shared.WithLogger(logger, "component", "relay"),
		recorder:    recorder,
	}
}

// SendMessage appends text as a user turn, produces the assistant reply and appends it.
//
// An empty message is rejected before the conversation changes. When the completion provider fails the
// user turn stays in the conversation and [shared.ErrUpstream] is returned.
func (r *Relay) SendMessage(ctx context.Context, session *models.Session, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: message is empty", shared.ErrInvalidInput)
	}

	session.Append(models.RoleUser, text)

	intent := ClassifyIntent(text)
	var (
		reply string
		err   error
	)
	switch intent {
	case IntentRecommend:
		reply, err = r.recommend(ctx, session)
	default:
		reply, err = r.complete(ctx, session)
	}
	if err != nil {
		r.recorder.RecordChatTurn(intent.String(), metrics.OutcomeError)
		return "", err
	}

	session.Append(models.RoleAssistant, reply)
	r.recorder.RecordChatTurn(intent.String(), metrics.OutcomeOK)
	r.logger.Debug("chat turn", "session", session.ID, "intent", intent, "messages", len(session.Conversation))

	return reply, nil
}

// Reset clears the conversation. Credentials are untouched.
func (r *Relay) Reset(session *models.Session) {
	session.ResetConversation()
}

func (r *Relay) recommend(ctx context.Context, session *models.Session) (string, error) {
	if !session.Authenticated() {
		return "", shared.ErrUnauthenticated
	}
	return r.recommender.Recommend(ctx, session.Credentials.AccessToken), nil
}

func (r *Relay) complete(ctx context.Context, session *models.Session) (string, error) {
	start := time.Now()
	reply, err := r.completer.Complete(ctx, session.History())
	if err != nil {
		r.recorder.RecordCompletion(r.completer.Name(), metrics.OutcomeError, time.Since(start))
		r.logger.Error("completion failed", "session", session.ID, "provider", r.completer.Name(), "err", err)
		return "", fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}

	r.recorder.RecordCompletion(r.completer.Name(), metrics.OutcomeOK, time.Since(start))
	return reply, nil
}
