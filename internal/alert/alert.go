// Package alert pushes operator notifications for scanner events. Alerts
// are dispatched to every configured channel (Telegram, Discord) and can be
// filtered by event kind so operators receive only what they care about.
// Delivery is fire-and-forget; a failed send is logged, never retried.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Event kinds accepted by the filter.
const (
	EventOpportunity    = "opportunity"
	EventPartialFailure = "partial_failure"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers an alert with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier formats scanner events into operator alerts and dispatches them
// to all registered senders. It implements the engine's alert hook.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event kinds; empty allows all
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders. Only events whose
// kind appears in events are delivered; an empty list allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "alert")),
	}
}

// OpportunityDetected announces a fee-positive signal. Called on every
// emitted opportunity, executed or not.
func (n *Notifier) OpportunityDetected(ctx context.Context, opp domain.Opportunity) {
	if !n.allowed(EventOpportunity) {
		return
	}
	title := fmt.Sprintf("Arbitrage: %s", opp.Strategy)
	n.dispatch(ctx, title, formatOpportunity(opp))
}

// PartialFailure announces unhedged exposure after a multi-leg execution
// broke mid-way. These bypass no filter gate beyond the event kind; they are
// the alerts the whole package exists for.
func (n *Notifier) PartialFailure(ctx context.Context, f domain.PartialLegFailure) {
	if !n.allowed(EventPartialFailure) {
		return
	}
	title := "PARTIAL LEG FAILURE: manual intervention required"
	n.dispatch(ctx, title, formatPartialFailure(f))
}

func (n *Notifier) allowed(event string) bool {
	return len(n.events) == 0 || n.events[event]
}

// dispatch fans the alert out to every sender. A single sender failure does
// not prevent delivery to the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.DebugContext(ctx, "alert sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}

func formatOpportunity(opp domain.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "pair: %s\n", opp.PairKey)
	fmt.Fprintf(&b, "size: %s contracts\n", opp.Size)
	fmt.Fprintf(&b, "net edge: $%s/contract (gross $%s, fees $%s total)\n",
		opp.NetEdge, opp.GrossEdge, opp.Fees)
	for _, leg := range opp.Legs {
		fmt.Fprintf(&b, "%s %s %s @ %s on %s\n",
			leg.Action, leg.Size, leg.InstrumentID, leg.Price, leg.Venue)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPartialFailure(f domain.PartialLegFailure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "opportunity: %s (%s)\n", f.OpportunityID, f.Strategy)
	fmt.Fprintf(&b, "failed leg: %s %s on %s\n",
		f.FailedLeg.Action, f.FailedLeg.InstrumentID, f.FailedLeg.Venue)
	fmt.Fprintf(&b, "cause: %v\n", f.Cause)
	exposure := "0"
	if len(f.PlacedLegs) > 0 {
		total := f.PlacedLegs[0].Leg.Price.Mul(f.PlacedLegs[0].Leg.Size)
		for _, r := range f.PlacedLegs[1:] {
			total = total.Add(r.Leg.Price.Mul(r.Leg.Size))
		}
		exposure = total.String()
	}
	fmt.Fprintf(&b, "filled legs: %d, exposure: $%s", len(f.PlacedLegs), exposure)
	return b.String()
}
