package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
	"github.com/magicbot/magicbot/internal/infra/signalcli"
)

var malformedLines = promauto.NewCounter(prometheus.CounterOpts{
	Name: "magicbot_malformed_events_total",
	Help: "receive lines that could not be parsed",
})

// eventSource implements repo.EventSource on a signal-cli receive stream
type eventSource struct {
	client *signalcli.Client
}

// NewEventSource creates the live event source
func NewEventSource(client *signalcli.Client) repo.EventSource {
	return &eventSource{client: client}
}

func (s *eventSource) Open(ctx context.Context) (repo.EventStream, error) {
	stream, err := s.client.Receive(ctx)
	if err != nil {
		return nil, err
	}

	es := &eventStream{
		stream: stream,
		events: make(chan *domain.Event),
	}
	go es.run(ctx)
	return es, nil
}

// eventStream converts raw lines into events in delivery order
type eventStream struct {
	stream *signalcli.Stream
	events chan *domain.Event
}

func (s *eventStream) Events() <-chan *domain.Event {
	return s.events
}

// Wait returns nil on cancellation and wraps domain.ErrStreamClosed otherwise
func (s *eventStream) Wait() error {
	err := s.stream.Wait()
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return domain.ErrStreamClosed
	}
	return fmt.Errorf("%w: %w", domain.ErrStreamClosed, err)
}

func (s *eventStream) run(ctx context.Context) {
	defer close(s.events)

	for line := range s.stream.Lines() {
		env, err := signalcli.ParseEnvelope(line)
		if err != nil {
			malformedLines.Inc()
			slog.Debug("skipping malformed event line", "error", err)
			continue
		}

		select {
		case s.events <- ConvertEnvelope(env):
		case <-ctx.Done():
			s.stream.Stop()
			// Drain so the reader can exit.
			for range s.stream.Lines() {
			}
			return
		}
	}
}

// ConvertEnvelope flattens a received envelope into a domain event
func ConvertEnvelope(env *signalcli.Envelope) *domain.Event {
	body := env.Envelope
	ev := &domain.Event{
		Account:      env.Account,
		Source:       body.Source,
		SourceNumber: body.SourceNumber,
		SourceUUID:   body.SourceUUID,
		SourceName:   body.SourceName,
		Timestamp:    body.Timestamp,
	}

	dm := body.DataMessage
	if dm == nil {
		return ev
	}
	ev.HasDataMessage = true
	if dm.Message != nil {
		ev.Message = *dm.Message
	}
	if dm.GroupInfo != nil {
		ev.GroupID = dm.GroupInfo.GroupID
		ev.GroupName = dm.GroupInfo.GroupName
		ev.GroupType = dm.GroupInfo.Type
	}
	ev.QuoteAuthor = dm.Quote.AuthorID()
	return ev
}
