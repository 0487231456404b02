package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/longsangsabo2025/sabo-arena/internal/service")

// Notifier receives engine events after the transaction that produced them
// has committed. Implementations must not block for long and never fail the
// caller.
type Notifier interface {
	MatchReady(ctx context.Context, m bracket.Match)
	MatchCompleted(ctx context.Context, m bracket.Match)
	TournamentCompleted(ctx context.Context, t bracket.Tournament, champion *uuid.UUID)
}

// SnapshotCache stores serialised tournament snapshots.
type SnapshotCache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, data []byte) error
	Delete(key string) error
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func startSpan(ctx context.Context, name string, tournamentID uuid.UUID) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("tournament.id", tournamentID.String())))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
