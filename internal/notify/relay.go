package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/longsangsabo2025/sabo-arena/internal/metrics"
)

const (
	TopicMatchReady          = "match.ready"
	TopicMatchCompleted      = "match.completed"
	TopicTournamentCompleted = "tournament.completed"

	metadataTournamentID = "tournament_id"
	metadataEventTopic   = "topic"
)

type MatchEvent struct {
	TournamentID uuid.UUID           `json:"tournament_id"`
	MatchID      uuid.UUID           `json:"match_id"`
	Code         string              `json:"code"`
	Status       bracket.MatchStatus `json:"status"`
	Participant1 *uuid.UUID          `json:"participant_1_id,omitempty"`
	Participant2 *uuid.UUID          `json:"participant_2_id,omitempty"`
	Score1       *int                `json:"score_1,omitempty"`
	Score2       *int                `json:"score_2,omitempty"`
	WinnerID     *uuid.UUID          `json:"winner_id,omitempty"`
	LoserID      *uuid.UUID          `json:"loser_id,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

type TournamentEvent struct {
	TournamentID uuid.UUID  `json:"tournament_id"`
	ChampionID   *uuid.UUID `json:"champion_id,omitempty"`
	CompletedAt  time.Time  `json:"completed_at"`
}

// Relay forwards engine events to a watermill publisher. Delivery is best
// effort: failures are logged and counted, never returned.
type Relay struct {
	publisher message.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewRelay(publisher message.Publisher, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{publisher: publisher, logger: logger, metrics: m}
}

// NewGoChannel builds the in-process pub/sub used when no broker is
// configured. Subscribers attach to the returned GoChannel.
func NewGoChannel(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewSlogLogger(logger))
}

func newMatchEvent(m bracket.Match) MatchEvent {
	return MatchEvent{
		TournamentID: m.TournamentID,
		MatchID:      m.ID,
		Code:         m.Code,
		Status:       m.Status,
		Participant1: m.Participant1ID,
		Participant2: m.Participant2ID,
		Score1:       m.Score1,
		Score2:       m.Score2,
		WinnerID:     m.WinnerID(),
		LoserID:      m.LoserID(),
		CompletedAt:  m.CompletedAt,
	}
}

func (r *Relay) MatchReady(ctx context.Context, m bracket.Match) {
	r.publish(ctx, TopicMatchReady, m.TournamentID, newMatchEvent(m))
}

func (r *Relay) MatchCompleted(ctx context.Context, m bracket.Match) {
	r.publish(ctx, TopicMatchCompleted, m.TournamentID, newMatchEvent(m))
}

func (r *Relay) TournamentCompleted(ctx context.Context, t bracket.Tournament, champion *uuid.UUID) {
	event := TournamentEvent{TournamentID: t.ID, ChampionID: champion}
	if t.CompletedAt != nil {
		event.CompletedAt = *t.CompletedAt
	}
	r.publish(ctx, TopicTournamentCompleted, t.ID, event)
}

func (r *Relay) publish(ctx context.Context, topic string, tournamentID uuid.UUID, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to encode event", slog.String("topic", topic), slog.Any("error", err))
		r.metrics.EventPublished(topic, err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataTournamentID, tournamentID.String())
	msg.Metadata.Set(metadataEventTopic, topic)
	msg.SetContext(ctx)

	err = r.publisher.Publish(topic, msg)
	r.metrics.EventPublished(topic, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish event",
			slog.String("topic", topic),
			slog.String("tournament_id", tournamentID.String()),
			slog.Any("error", err),
		)
		return
	}
	r.logger.DebugContext(ctx, "Event published",
		slog.String("topic", topic),
		slog.String("message_uuid", msg.UUID),
	)
}

// Nop drops every event.
type Nop struct{}

func (Nop) MatchReady(context.Context, bracket.Match) {}
func (Nop) MatchCompleted(context.Context, bracket.Match) {}
func (Nop) TournamentCompleted(context.Context, bracket.Tournament, *uuid.UUID) {}
