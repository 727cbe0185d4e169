package cognitive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mnemo/internal/jobqueue"
	"mnemo/internal/logging"
	"mnemo/internal/profilestore"
	"mnemo/internal/vectorstore"
)

// Event is a producer-supplied chat event to remember.
type Event struct {
	RequestID     string
	UserID        string
	GroupID       string
	SenderID      string
	RequestType   string
	ActionSummary string
	NewInfo       string
	EndSeq        int
}

// SearchOptions narrow a search. Zero values mean no restriction; TopK 0
// falls back to the configured default.
type SearchOptions struct {
	TopK       int
	GroupID    string
	UserID     string
	SenderID   string
	EntityType string
}

// Options configure the facade.
type Options struct {
	Enabled bool
	TopK    int
}

// Service composes the job queue, vector index, and profile store behind a
// single entry surface for the rest of the application.
type Service struct {
	opts     Options
	queue    *jobqueue.Store
	vectors  *vectorstore.Store
	profiles *profilestore.Store
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs the facade. All three stores are required.
func New(opts Options, queue *jobqueue.Store, vectors *vectorstore.Store, profiles *profilestore.Store, logger *slog.Logger) (*Service, error) {
	if queue == nil || vectors == nil || profiles == nil {
		return nil, errors.New("cognitive service requires queue, vector, and profile stores")
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Service{
		opts:     opts,
		queue:    queue,
		vectors:  vectors,
		profiles: profiles,
		logger:   logging.NewComponentLogger(logger, "cognitive"),
		now:      time.Now,
	}, nil
}

// Enabled reports whether the memory subsystem is active.
func (s *Service) Enabled() bool {
	return s.opts.Enabled
}

// EnqueueEvent records an event for deferred processing and returns the job
// id. When the subsystem is disabled it returns an empty id and no error.
func (s *Service) EnqueueEvent(ctx context.Context, event Event) (string, error) {
	if !s.opts.Enabled {
		return "", nil
	}

	now := s.now()
	payload := jobqueue.Payload{
		"request_id":      event.RequestID,
		"user_id":         event.UserID,
		"group_id":        event.GroupID,
		"sender_id":       event.SenderID,
		"request_type":    event.RequestType,
		"timestamp_utc":   now.UTC().Format(time.RFC3339),
		"timestamp_local": now.Format(time.RFC3339),
		"action_summary":  event.ActionSummary,
		"new_info":        event.NewInfo,
		"has_new_info":    event.NewInfo != "",
		"end_seq":         event.EndSeq,
	}
	jobID, err := s.queue.Enqueue(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("enqueue event: %w", err)
	}
	s.logger.Debug("event enqueued",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldEventType, "cognitive_event_enqueued"))
	return jobID, nil
}

// GetProfile returns the stored profile for an entity, or empty when the
// entity has none or the subsystem is disabled.
func (s *Service) GetProfile(ctx context.Context, entityType, entityID string) (string, error) {
	if !s.opts.Enabled {
		return "", nil
	}
	return s.profiles.Read(ctx, entityType, entityID)
}

// SearchEvents returns events semantically close to query, optionally
// restricted to a group, user, or sender.
func (s *Service) SearchEvents(ctx context.Context, query string, opts SearchOptions) ([]vectorstore.Result, error) {
	if !s.opts.Enabled {
		return nil, nil
	}

	where := map[string]string{}
	if opts.GroupID != "" {
		where["group_id"] = opts.GroupID
	}
	if opts.UserID != "" {
		where["user_id"] = opts.UserID
	}
	if opts.SenderID != "" {
		where["sender_id"] = opts.SenderID
	}
	if len(where) == 0 {
		where = nil
	}
	return s.vectors.QueryEvents(ctx, query, s.topK(opts), where)
}

// SearchProfiles returns profiles semantically close to query, optionally
// restricted to an entity type.
func (s *Service) SearchProfiles(ctx context.Context, query string, opts SearchOptions) ([]vectorstore.Result, error) {
	if !s.opts.Enabled {
		return nil, nil
	}

	var where map[string]string
	if opts.EntityType != "" {
		where = map[string]string{"entity_type": opts.EntityType}
	}
	return s.vectors.QueryProfiles(ctx, query, s.topK(opts), where)
}

// BuildContext assembles the stored knowledge relevant to a query into one
// prompt-ready block: the user and group profiles, then the closest events.
// Missing pieces are simply omitted; a fully empty result is an empty string.
func (s *Service) BuildContext(ctx context.Context, query, groupID, userID, senderID string) (string, error) {
	if !s.opts.Enabled {
		return "", nil
	}

	var parts []string

	uid := userID
	if uid == "" {
		uid = senderID
	}
	if uid != "" {
		profile, err := s.profiles.Read(ctx, "user", uid)
		if err != nil {
			return "", fmt.Errorf("read user profile: %w", err)
		}
		if profile != "" {
			parts = append(parts, "## User Profile\n"+profile)
		}
	}
	if groupID != "" {
		profile, err := s.profiles.Read(ctx, "group", groupID)
		if err != nil {
			return "", fmt.Errorf("read group profile: %w", err)
		}
		if profile != "" {
			parts = append(parts, "## Group Profile\n"+profile)
		}
	}

	var where map[string]string
	if groupID != "" {
		where = map[string]string{"group_id": groupID}
	} else if uid != "" {
		where = map[string]string{"user_id": uid}
	}
	events, err := s.vectors.QueryEvents(ctx, query, s.opts.TopK, where)
	if err != nil {
		return "", fmt.Errorf("query related events: %w", err)
	}
	if len(events) > 0 {
		lines := make([]string, 0, len(events))
		for _, event := range events {
			lines = append(lines, fmt.Sprintf("- [%s] %s", event.Metadata["timestamp_local"], event.Document))
		}
		parts = append(parts, "## Related Memories\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n"), nil
}

func (s *Service) topK(opts SearchOptions) int {
	if opts.TopK > 0 {
		return opts.TopK
	}
	return s.opts.TopK
}
