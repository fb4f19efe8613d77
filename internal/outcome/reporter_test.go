package outcome

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contactrelay/internal/contact"
)

type fakePublisher struct {
	routingKey string
	messageID  string
	payload    any
	err        error
}

func (p *fakePublisher) Publish(_ context.Context, routingKey, messageID string, payload any) error {
	p.routingKey = routingKey
	p.messageID = messageID
	p.payload = payload
	return p.err
}

type failingSink struct{ calls int }

func (*failingSink) Name() string { return "broken" }

func (s *failingSink) Write(context.Context, Record) error {
	s.calls++
	return errors.New("sink down")
}

func sampleOutcome() contact.Outcome {
	return contact.Outcome{
		AttemptID:   "7d4a0c1e-5b7b-4a57-9f31-1f1c6c0e9a11",
		FormID:      "form-1",
		Result:      contact.OutcomeSucceeded,
		Banner:      contact.BannerSuccess,
		RelayStatus: 200,
		SenderEmail: "Ada@Example.com",
		Duration:    1250 * time.Millisecond,
		FinishedAt:  time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
	}
}

func TestNewRecordHashesSender(t *testing.T) {
	rec := NewRecord(sampleOutcome())

	assert.Equal(t, HashAddress("ada@example.com"), rec.SenderHash)
	assert.Len(t, rec.SenderHash, 64)
	assert.NotContains(t, rec.SenderHash, "ada")
	assert.EqualValues(t, 1250, rec.DurationMS)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.Equal(t, "contact.submission.succeeded", rec.RoutingKey())
}

func TestReporterPublishesAndSurvivesSinkFailure(t *testing.T) {
	pub := &fakePublisher{}
	broken := &failingSink{}
	r := NewReporter(zap.NewNop(), broken, EventSink{Publisher: pub})

	r.Report(context.Background(), sampleOutcome())

	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, "contact.submission.succeeded", pub.routingKey)
	assert.Equal(t, "7d4a0c1e-5b7b-4a57-9f31-1f1c6c0e9a11", pub.messageID)
	rec, ok := pub.payload.(Record)
	require.True(t, ok)
	assert.Equal(t, "form-1", rec.FormID)
}

func TestReporterOutlivesCanceledRequest(t *testing.T) {
	pub := &fakePublisher{}
	r := NewReporter(zap.NewNop(), EventSink{Publisher: pub})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Report(ctx, sampleOutcome())

	assert.Equal(t, "contact.submission.succeeded", pub.routingKey)
}
