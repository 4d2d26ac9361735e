package ports

import (
	"context"

	"knkt-backend/domain/events"
	"knkt-backend/domain/profile"
)

// EmbeddingProvider turns skill text into a vector. A zero-value
// (empty) vector is a valid answer meaning "no numeric signal"; the
// caller falls back to lexical matching.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) (profile.Vector, error)
}

// ConnectionSummaries is the generated relationship copy for a freshly
// created connection. Any field may be nil when generation fails; the
// connection itself is never blocked on them.
type ConnectionSummaries struct {
	// UID1Summary describes participant one, shown to participant two.
	UID1Summary *string
	// UID2Summary describes participant two, shown to participant one.
	UID2Summary         *string
	NotificationMessage *string
}

// SummaryGenerator produces human-readable summaries for a strong
// match. Best-effort: implementations return all-nil summaries rather
// than failing the request.
type SummaryGenerator interface {
	Summarize(ctx context.Context, first, second *profile.Profile, matchPercentage float64) ConnectionSummaries
}

// NotificationSender delivers a push notification to a single user.
// Delivery is best-effort; the result reports success for metrics and
// logging only.
type NotificationSender interface {
	NotifyUser(ctx context.Context, uid, title, body string, data map[string]string) bool
}

// EventPublisher emits domain events onto the event bus. Downstream a
// fan-out worker delivers them to each recipient's live sessions.
// Publish failures are logged by implementations and never surfaced to
// the triggering request.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}
