package cognitive_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mnemo/internal/cognitive"
	"mnemo/internal/jobqueue"
	"mnemo/internal/logging"
	"mnemo/internal/testsupport"
	"mnemo/internal/worker"
)

type failingRewriter struct{}

func (failingRewriter) Rewrite(context.Context, jobqueue.Payload) (string, error) {
	return "", errors.New("model unavailable")
}

type canonicalRewriter struct{}

func (canonicalRewriter) Rewrite(_ context.Context, payload jobqueue.Payload) (string, error) {
	summary, _ := payload["action_summary"].(string)
	return "On 2026-08-30 user 42 " + summary, nil
}

func TestHistorianRewriterFailureIsTransient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	vectors := testsupport.MustOpenVectors(t)
	profiles := testsupport.MustOpenProfiles(t, cfg)

	historian, err := cognitive.NewHistorian(vectors, profiles, logging.NewNop(),
		cognitive.WithRewriter(failingRewriter{}))
	if err != nil {
		t.Fatalf("NewHistorian: %v", err)
	}

	err = historian.Process(context.Background(), "j1", jobqueue.Payload{"action_summary": "hi"})
	if err == nil {
		t.Fatal("expected rewrite failure")
	}
	if !worker.IsTransient(err) {
		t.Fatalf("rewrite failure should be transient, got %v", err)
	}
}

func TestHistorianUsesInjectedRewriter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	vectors := testsupport.MustOpenVectors(t)
	profiles := testsupport.MustOpenProfiles(t, cfg)

	historian, err := cognitive.NewHistorian(vectors, profiles, logging.NewNop(),
		cognitive.WithRewriter(canonicalRewriter{}))
	if err != nil {
		t.Fatalf("NewHistorian: %v", err)
	}

	payload := jobqueue.Payload{"action_summary": "asked about ferry times", "user_id": "42"}
	if err := historian.Process(context.Background(), "j2", payload); err != nil {
		t.Fatalf("Process: %v", err)
	}

	results, err := vectors.QueryEvents(context.Background(), "ferry times", 1, nil)
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(results) != 1 || !strings.HasPrefix(results[0].Document, "On 2026-08-30") {
		t.Fatalf("expected rewritten document, got %#v", results)
	}
}

func TestHistorianRejectsEmptyDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	vectors := testsupport.MustOpenVectors(t)
	profiles := testsupport.MustOpenProfiles(t, cfg)

	historian, err := cognitive.NewHistorian(vectors, profiles, logging.NewNop())
	if err != nil {
		t.Fatalf("NewHistorian: %v", err)
	}

	err = historian.Process(context.Background(), "j3", jobqueue.Payload{})
	if err == nil {
		t.Fatal("expected an error for an empty event")
	}
	if worker.IsTransient(err) {
		t.Fatalf("empty event is terminal, got transient %v", err)
	}
}

func TestHistorianSkipsProfileWithoutEntity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	vectors := testsupport.MustOpenVectors(t)
	profiles := testsupport.MustOpenProfiles(t, cfg)

	historian, err := cognitive.NewHistorian(vectors, profiles, logging.NewNop())
	if err != nil {
		t.Fatalf("NewHistorian: %v", err)
	}

	payload := jobqueue.Payload{
		"action_summary": "anonymous remark",
		"new_info":       "something new",
		"has_new_info":   true,
	}
	if err := historian.Process(context.Background(), "j4", payload); err != nil {
		t.Fatalf("Process: %v", err)
	}

	results, err := vectors.QueryProfiles(context.Background(), "anything", 1, nil)
	if err != nil {
		t.Fatalf("QueryProfiles: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no profile documents, got %#v", results)
	}
}
