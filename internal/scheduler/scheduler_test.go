package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("not a cron spec", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	s, err := New("*/10 * * * *", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	var ran []string
	s.RunOnce(context.Background(),
		Job{Name: "purge", Run: func(context.Context) error {
			ran = append(ran, "purge")
			return errors.New("disk full")
		}},
		Job{Name: "settle", Run: func(context.Context) error {
			ran = append(ran, "settle")
			return nil
		}},
	)
	assert.Equal(t, []string{"purge", "settle"}, ran)
}
