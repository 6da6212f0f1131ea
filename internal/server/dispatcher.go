package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magicbot/magicbot/internal/biz"
	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
	"github.com/magicbot/magicbot/internal/biz/usecase"
)

// Dispatcher drives the engine from the live event stream. Events are
// handled one at a time in delivery order.
type Dispatcher struct {
	events       repo.EventSource
	registryUC   *usecase.RegistryUsecase
	moderationUC *usecase.ModerationUsecase
	membershipUC *usecase.MembershipUsecase
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(events repo.EventSource, ucs *biz.Usecases) *Dispatcher {
	return &Dispatcher{
		events:       events,
		registryUC:   ucs.Registry,
		moderationUC: ucs.Moderation,
		membershipUC: ucs.Membership,
	}
}

// Run loads the watched groups and processes events until the stream ends
// or ctx is cancelled. It returns nil on cancellation and an error wrapping
// domain.ErrStreamClosed when the stream ended by itself.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.registryUC.Load(ctx); err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}
	slog.Info("watching groups", "count", len(d.registryUC.GroupIDs()), "self", d.registryUC.SelfID())

	stream, err := d.events.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}

	for ev := range stream.Events() {
		d.HandleEvent(ctx, ev)
	}
	return stream.Wait()
}

// HandleEvent classifies one event and routes it. Failures are logged; they
// never stop the loop.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev *domain.Event) {
	if !ev.IsGroupEvent() {
		eventsTotal.WithLabelValues(kindNoGroup).Inc()
		return
	}

	rt := d.registryUC.Get(ev.GroupID)
	if rt == nil {
		eventsTotal.WithLabelValues(kindUnwatched).Inc()
		return
	}

	if ev.IsGroupUpdate() {
		eventsTotal.WithLabelValues(kindUpdate).Inc()
		d.handleUpdate(ctx, ev.GroupID)
		return
	}

	eventsTotal.WithLabelValues(kindMessage).Inc()
	d.handleMessage(ctx, rt, ev)
}

func (d *Dispatcher) handleUpdate(ctx context.Context, groupID string) {
	result, err := d.membershipUC.HandleUpdate(ctx, groupID)
	if result == nil {
		slog.Error("group update failed", "group", groupID, "error", err)
		countAction("update", err)
		return
	}

	if result.TookOver {
		countAction(string(domain.ActionTakeover), nil)
	}
	for i := 0; i < result.Welcomed; i++ {
		countAction(string(domain.ActionWelcome), nil)
	}
	if err != nil {
		slog.Warn("group update partly failed", "group", groupID, "error", err)
		countAction("update", err)
	}
	slog.Info("group updated",
		"group", groupID,
		"added", len(result.Added),
		"welcomed", result.Welcomed,
		"took_over", result.TookOver,
		"admin", result.AdminNow,
	)
}

func (d *Dispatcher) handleMessage(ctx context.Context, rt *domain.GroupRuntime, ev *domain.Event) {
	result, err := d.moderationUC.HandleMessage(ctx, rt, ev)
	if result == nil || result.Action == "" {
		if err != nil {
			slog.Error("message handling failed", "group", rt.GroupID(), "sender", ev.SenderID(), "error", err)
		}
		return
	}

	countAction(string(result.Action), err)
	if err != nil {
		slog.Warn("moderation action failed",
			"group", rt.GroupID(),
			"action", result.Action,
			"target", result.Target,
			"error", err,
		)
		return
	}
	slog.Info("moderation action",
		"group", rt.GroupID(),
		"action", result.Action,
		"verdict", result.Verdict.Kind,
		"sender", ev.SenderID(),
		"target", result.Target,
	)
}
