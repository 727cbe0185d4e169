package cognitive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mnemo/internal/jobqueue"
	"mnemo/internal/logging"
	"mnemo/internal/profilestore"
	"mnemo/internal/vectorstore"
	"mnemo/internal/worker"
)

// Rewriter turns a raw event payload into canonical document text with
// pronouns and relative time resolved. The model behind it is external;
// the default keeps the event text as-is.
type Rewriter interface {
	Rewrite(ctx context.Context, payload jobqueue.Payload) (string, error)
}

// MergedProfile is the outcome of folding a new event into an entity profile.
type MergedProfile struct {
	Name    string
	Tags    []string
	Summary string
}

// ProfileMerger combines the current profile with new information. The
// default appends; a model-backed implementation can summarize instead.
type ProfileMerger interface {
	Merge(ctx context.Context, current, canonical, newInfo string) (MergedProfile, error)
}

// Historian processes queued events: it writes each as a document into the
// vector index and updates the owning entity's profile when the event
// carries new information.
type Historian struct {
	vectors  *vectorstore.Store
	profiles *profilestore.Store
	rewriter Rewriter
	merger   ProfileMerger
	logger   *slog.Logger
}

// HistorianOption customizes construction.
type HistorianOption func(*Historian)

// WithRewriter replaces the default pass-through rewriter.
func WithRewriter(r Rewriter) HistorianOption {
	return func(h *Historian) {
		if r != nil {
			h.rewriter = r
		}
	}
}

// WithProfileMerger replaces the default append-only merger.
func WithProfileMerger(m ProfileMerger) HistorianOption {
	return func(h *Historian) {
		if m != nil {
			h.merger = m
		}
	}
}

// NewHistorian constructs the processor backing the worker loop.
func NewHistorian(vectors *vectorstore.Store, profiles *profilestore.Store, logger *slog.Logger, opts ...HistorianOption) (*Historian, error) {
	if vectors == nil || profiles == nil {
		return nil, fmt.Errorf("historian requires vector and profile stores")
	}
	h := &Historian{
		vectors:  vectors,
		profiles: profiles,
		rewriter: passthroughRewriter{},
		merger:   appendMerger{},
		logger:   logging.NewComponentLogger(logger, "historian"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Process implements worker.Processor. Rewriter and index failures are
// marked transient so the worker retries them within its budget.
func (h *Historian) Process(ctx context.Context, jobID string, payload jobqueue.Payload) error {
	canonical, err := h.rewriter.Rewrite(ctx, payload)
	if err != nil {
		return worker.Transient(fmt.Errorf("rewrite event: %w", err))
	}
	if strings.TrimSpace(canonical) == "" {
		return fmt.Errorf("event %s produced no document text", jobID)
	}

	metadata := map[string]any{
		"user_id":         stringField(payload, "user_id"),
		"group_id":        stringField(payload, "group_id"),
		"sender_id":       stringField(payload, "sender_id"),
		"request_type":    stringField(payload, "request_type"),
		"timestamp_utc":   stringField(payload, "timestamp_utc"),
		"timestamp_local": stringField(payload, "timestamp_local"),
	}
	if err := h.vectors.UpsertEvent(ctx, jobID, canonical, metadata); err != nil {
		return worker.Transient(fmt.Errorf("store event: %w", err))
	}

	if hasNewInfo(payload) {
		if err := h.mergeProfile(ctx, jobID, payload, canonical); err != nil {
			return err
		}
	}

	h.logger.Debug("event recorded",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldEventType, "historian_event_recorded"))
	return nil
}

func (h *Historian) mergeProfile(ctx context.Context, eventID string, payload jobqueue.Payload, canonical string) error {
	entityType := "user"
	if stringField(payload, "group_id") != "" {
		entityType = "group"
	}
	entityID := firstNonEmpty(
		stringField(payload, "group_id"),
		stringField(payload, "user_id"),
		stringField(payload, "sender_id"),
	)
	if entityID == "" {
		return nil
	}

	current, err := h.profiles.Read(ctx, entityType, entityID)
	if err != nil {
		return fmt.Errorf("read profile %s/%s: %w", entityType, entityID, err)
	}

	merged, err := h.merger.Merge(ctx, current, canonical, stringField(payload, "new_info"))
	if err != nil {
		return worker.Transient(fmt.Errorf("merge profile %s/%s: %w", entityType, entityID, err))
	}
	if strings.TrimSpace(merged.Summary) == "" {
		return nil
	}

	if err := h.profiles.Write(ctx, entityType, entityID, merged.Summary); err != nil {
		return fmt.Errorf("write profile %s/%s: %w", entityType, entityID, err)
	}

	profileMeta := map[string]any{
		"entity_type":     entityType,
		"entity_id":       entityID,
		"name":            merged.Name,
		"tags":            merged.Tags,
		"source_event_id": eventID,
	}
	profileID := entityType + ":" + entityID
	if err := h.vectors.UpsertProfile(ctx, profileID, merged.Summary, profileMeta); err != nil {
		return worker.Transient(fmt.Errorf("store profile %s: %w", profileID, err))
	}
	return nil
}

// passthroughRewriter composes the document from the event fields directly.
type passthroughRewriter struct{}

func (passthroughRewriter) Rewrite(_ context.Context, payload jobqueue.Payload) (string, error) {
	summary := stringField(payload, "action_summary")
	newInfo := stringField(payload, "new_info")
	switch {
	case summary != "" && newInfo != "":
		return summary + "\n" + newInfo, nil
	case summary != "":
		return summary, nil
	default:
		return newInfo, nil
	}
}

// appendMerger grows the profile by appending the new information.
type appendMerger struct{}

func (appendMerger) Merge(_ context.Context, current, canonical, newInfo string) (MergedProfile, error) {
	addition := newInfo
	if addition == "" {
		addition = canonical
	}
	summary := addition
	if current != "" {
		summary = current + "\n" + addition
	}
	return MergedProfile{Summary: summary}, nil
}

func stringField(payload jobqueue.Payload, key string) string {
	value, _ := payload[key].(string)
	return strings.TrimSpace(value)
}

func hasNewInfo(payload jobqueue.Payload) bool {
	if flag, ok := payload["has_new_info"].(bool); ok {
		return flag
	}
	return stringField(payload, "new_info") != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
