package cognitive_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"mnemo/internal/cognitive"
	"mnemo/internal/jobqueue"
	"mnemo/internal/logging"
	"mnemo/internal/testsupport"
	"mnemo/internal/worker"
)

func newService(t *testing.T, enabled bool) (*cognitive.Service, *jobqueue.Store, *worker.Worker) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	queue := testsupport.MustOpenQueue(t, cfg)
	vectors := testsupport.MustOpenVectors(t)
	profiles := testsupport.MustOpenProfiles(t, cfg)

	svc, err := cognitive.New(cognitive.Options{Enabled: enabled, TopK: 5}, queue, vectors, profiles, logging.NewNop())
	if err != nil {
		t.Fatalf("cognitive.New: %v", err)
	}
	historian, err := cognitive.NewHistorian(vectors, profiles, logging.NewNop())
	if err != nil {
		t.Fatalf("cognitive.NewHistorian: %v", err)
	}
	w, err := worker.New(queue, historian, worker.Config{
		PollInterval: 10 * time.Millisecond,
		StaleTimeout: time.Minute,
		MaxRetries:   3,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("worker.New: %v", err)
	}
	return svc, queue, w
}

func drain(t *testing.T, w *worker.Worker) {
	t.Helper()
	for {
		handled, err := w.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if !handled {
			return
		}
	}
}

func TestDisabledServiceIsInert(t *testing.T) {
	svc, queue, _ := newService(t, false)
	ctx := context.Background()

	jobID, err := svc.EnqueueEvent(ctx, cognitive.Event{RequestID: "r1", ActionSummary: "said hi"})
	if err != nil {
		t.Fatalf("EnqueueEvent: %v", err)
	}
	if jobID != "" {
		t.Fatalf("expected empty job id when disabled, got %q", jobID)
	}

	stats, err := queue.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total() != 0 {
		t.Fatalf("disabled enqueue must not touch the queue, got %+v", stats)
	}

	profile, err := svc.GetProfile(ctx, "user", "42")
	if err != nil || profile != "" {
		t.Fatalf("disabled GetProfile = (%q, %v), want empty and nil", profile, err)
	}
	events, err := svc.SearchEvents(ctx, "anything", cognitive.SearchOptions{})
	if err != nil || events != nil {
		t.Fatalf("disabled SearchEvents = (%v, %v), want nil and nil", events, err)
	}
	profiles, err := svc.SearchProfiles(ctx, "anything", cognitive.SearchOptions{})
	if err != nil || profiles != nil {
		t.Fatalf("disabled SearchProfiles = (%v, %v), want nil and nil", profiles, err)
	}
	block, err := svc.BuildContext(ctx, "anything", "", "42", "")
	if err != nil || block != "" {
		t.Fatalf("disabled BuildContext = (%q, %v), want empty and nil", block, err)
	}
}

func TestEnqueueEventBuildsJobPayload(t *testing.T) {
	svc, queue, _ := newService(t, true)
	ctx := context.Background()

	jobID, err := svc.EnqueueEvent(ctx, cognitive.Event{
		RequestID:     "r9",
		UserID:        "42",
		GroupID:       "g7",
		SenderID:      "42",
		RequestType:   "group",
		ActionSummary: "discussed the weekend plan",
		NewInfo:       "Alex is moving to Oslo",
		EndSeq:        3,
	})
	if err != nil {
		t.Fatalf("EnqueueEvent: %v", err)
	}
	if !strings.HasPrefix(jobID, "r9_3_") {
		t.Fatalf("unexpected job id %q", jobID)
	}

	claimedID, payload, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if claimedID != jobID {
		t.Fatalf("dequeued %q, want %q", claimedID, jobID)
	}
	if payload["group_id"] != "g7" || payload["request_type"] != "group" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if payload["has_new_info"] != true {
		t.Fatalf("expected has_new_info true, got %#v", payload["has_new_info"])
	}
	if payload["timestamp_utc"] == "" || payload["timestamp_local"] == "" {
		t.Fatalf("expected timestamps in payload: %#v", payload)
	}
}

func TestEnqueueProcessSearchRoundTrip(t *testing.T) {
	svc, _, w := newService(t, true)
	ctx := context.Background()

	if _, err := svc.EnqueueEvent(ctx, cognitive.Event{
		RequestID:     "r1",
		UserID:        "42",
		SenderID:      "42",
		RequestType:   "private",
		ActionSummary: "talked about bouldering grades",
		NewInfo:       "the user climbs V5",
	}); err != nil {
		t.Fatalf("EnqueueEvent: %v", err)
	}
	drain(t, w)

	events, err := svc.SearchEvents(ctx, "bouldering", cognitive.SearchOptions{UserID: "42"})
	if err != nil {
		t.Fatalf("SearchEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !strings.Contains(events[0].Document, "bouldering grades") {
		t.Fatalf("unexpected document %q", events[0].Document)
	}
	if events[0].Metadata["user_id"] != "42" {
		t.Fatalf("unexpected metadata %#v", events[0].Metadata)
	}

	// The new_info flag also produced a profile for the user.
	profile, err := svc.GetProfile(ctx, "user", "42")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if !strings.Contains(profile, "climbs V5") {
		t.Fatalf("unexpected profile %q", profile)
	}

	profiles, err := svc.SearchProfiles(ctx, "climbing", cognitive.SearchOptions{EntityType: "user"})
	if err != nil {
		t.Fatalf("SearchProfiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != "user:42" {
		t.Fatalf("unexpected profile results %#v", profiles)
	}
}

func TestSearchEventsHonorsGroupFilter(t *testing.T) {
	svc, _, w := newService(t, true)
	ctx := context.Background()

	for _, event := range []cognitive.Event{
		{RequestID: "a", GroupID: "g1", ActionSummary: "planned the hiking trip"},
		{RequestID: "b", GroupID: "g2", ActionSummary: "planned the hiking gear list"},
	} {
		if _, err := svc.EnqueueEvent(ctx, event); err != nil {
			t.Fatalf("EnqueueEvent: %v", err)
		}
	}
	drain(t, w)

	events, err := svc.SearchEvents(ctx, "hiking", cognitive.SearchOptions{GroupID: "g1"})
	if err != nil {
		t.Fatalf("SearchEvents: %v", err)
	}
	if len(events) != 1 || events[0].Metadata["group_id"] != "g1" {
		t.Fatalf("expected only the g1 event, got %#v", events)
	}
}

func TestBuildContextAssemblesProfilesAndEvents(t *testing.T) {
	svc, _, w := newService(t, true)
	ctx := context.Background()

	if _, err := svc.EnqueueEvent(ctx, cognitive.Event{
		RequestID:     "r1",
		UserID:        "42",
		ActionSummary: "chatted about espresso ratios",
		NewInfo:       "the user owns a lever machine",
	}); err != nil {
		t.Fatalf("EnqueueEvent: %v", err)
	}
	drain(t, w)

	block, err := svc.BuildContext(ctx, "espresso", "", "42", "")
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if !strings.Contains(block, "## User Profile") {
		t.Fatalf("expected user profile section, got %q", block)
	}
	if !strings.Contains(block, "## Related Memories") {
		t.Fatalf("expected related memories section, got %q", block)
	}
	if !strings.Contains(block, "espresso ratios") {
		t.Fatalf("expected the event text in the block, got %q", block)
	}

	empty, err := svc.BuildContext(ctx, "espresso", "", "", "")
	if err != nil {
		t.Fatalf("BuildContext without entity: %v", err)
	}
	if !strings.Contains(empty, "## Related Memories") {
		t.Fatalf("expected unfiltered event recall, got %q", empty)
	}
}

func TestBuildContextEmptyWhenNothingStored(t *testing.T) {
	svc, _, _ := newService(t, true)

	block, err := svc.BuildContext(context.Background(), "anything", "", "42", "")
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if block != "" {
		t.Fatalf("expected empty context, got %q", block)
	}
}
