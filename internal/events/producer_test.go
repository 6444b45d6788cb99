package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/niftron/internal/contracts"
	"github.com/wonny/niftron/pkg/config"
	"github.com/wonny/niftron/pkg/logger"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestProducer_PublishRecommendations(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w, topic: "test", logger: logger.Nop()}

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	set := &contracts.RecommendationSet{
		Date: date,
		Heuristic: []contracts.Recommendation{
			{Date: date, Rank: 1, StockID: 7, Symbol: "INFY.NS", Score: 88, ModelType: contracts.ModelHeuristic},
		},
	}

	require.NoError(t, p.PublishRecommendations(context.Background(), set))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "2024-03-01", string(w.msgs[0].Key))

	var event RecommendationEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, EventRecommendationsPublished, event.EventType)
	assert.Equal(t, "2024-03-01", event.Date)
	require.Len(t, event.Heuristic, 1)
	assert.Equal(t, int64(7), event.Heuristic[0].StockID)
	assert.Empty(t, event.Learned)
}

func TestProducer_WriteError(t *testing.T) {
	p := &Producer{writer: &recordingWriter{err: errors.New("broker down")}, topic: "test", logger: logger.Nop()}

	err := p.PublishRecommendations(context.Background(), &contracts.RecommendationSet{})
	assert.Error(t, err)
}

func TestNew_Disabled(t *testing.T) {
	pub := New(&config.Config{}, logger.Nop())

	_, isNoop := pub.(NoopPublisher)
	assert.True(t, isNoop)
	assert.NoError(t, pub.PublishRecommendations(context.Background(), &contracts.RecommendationSet{}))
	assert.NoError(t, pub.Close())
}
