package vectorstore_test

import (
	"context"
	"testing"

	"mnemo/internal/testsupport"
)

func TestUpsertAndQueryEvents(t *testing.T) {
	store := testsupport.MustOpenVectors(t)
	ctx := context.Background()

	meta := map[string]any{
		"user_id":     "42",
		"message_ids": []any{"10001", " "},
	}
	if err := store.UpsertEvent(ctx, "evt-1", "went hiking in the mountains", meta); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}
	if err := store.UpsertEvent(ctx, "evt-2", "debugged the billing service", map[string]any{"user_id": "7"}); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}

	results, err := store.QueryEvents(ctx, "went hiking in the mountains", 5, nil)
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "evt-1" {
		t.Fatalf("expected closest match evt-1, got %s", results[0].ID)
	}
	if results[0].Metadata["user_id"] != "42" {
		t.Fatalf("expected user_id metadata preserved, got %#v", results[0].Metadata)
	}
	if results[0].Metadata["message_ids"] != `["10001"]` {
		t.Fatalf("expected sanitized message_ids, got %q", results[0].Metadata["message_ids"])
	}
}

func TestQueryEventsWhereFilter(t *testing.T) {
	store := testsupport.MustOpenVectors(t)
	ctx := context.Background()

	if err := store.UpsertEvent(ctx, "evt-a", "same text", map[string]any{"group_id": "g1"}); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}
	if err := store.UpsertEvent(ctx, "evt-b", "same text", map[string]any{"group_id": "g2"}); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}

	results, err := store.QueryEvents(ctx, "same text", 5, map[string]string{"group_id": "g2"})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(results) != 1 || results[0].ID != "evt-b" {
		t.Fatalf("expected only evt-b, got %#v", results)
	}
}

func TestUpsertSameIDReplaces(t *testing.T) {
	store := testsupport.MustOpenVectors(t)
	ctx := context.Background()

	if err := store.UpsertEvent(ctx, "evt-1", "first version", nil); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}
	if err := store.UpsertEvent(ctx, "evt-1", "second version", nil); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}

	if count := store.EventCount(); count != 1 {
		t.Fatalf("expected 1 document after overwrite, got %d", count)
	}
	results, err := store.QueryEvents(ctx, "second version", 1, nil)
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(results) != 1 || results[0].Document != "second version" {
		t.Fatalf("expected overwritten document, got %#v", results)
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	store := testsupport.MustOpenVectors(t)

	results, err := store.QueryProfiles(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatalf("QueryProfiles: %v", err)
	}
	if results != nil {
		t.Fatalf("expected no results, got %#v", results)
	}
}
