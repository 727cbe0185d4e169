package vectorstore_test

import (
	"reflect"
	"testing"

	"mnemo/internal/vectorstore"
)

func TestSanitizeMetadataDropsEmptyLists(t *testing.T) {
	meta := map[string]any{
		"request_id":  "req-1",
		"message_ids": []any{},
		"end_seq":     1,
	}

	cleaned := vectorstore.SanitizeMetadata(meta)

	if cleaned["request_id"] != "req-1" {
		t.Fatalf("expected request_id preserved, got %#v", cleaned)
	}
	if cleaned["end_seq"] != 1 {
		t.Fatalf("expected end_seq preserved, got %#v", cleaned)
	}
	if _, present := cleaned["message_ids"]; present {
		t.Fatalf("expected empty message_ids dropped, got %#v", cleaned)
	}
}

func TestSanitizeMetadataFiltersListEntries(t *testing.T) {
	meta := map[string]any{
		"message_ids": []any{"10001", " ", 10002, nil},
		"user_id":     "42",
	}

	cleaned := vectorstore.SanitizeMetadata(meta)

	if cleaned["user_id"] != "42" {
		t.Fatalf("expected scalar passed through, got %#v", cleaned)
	}
	want := []any{"10001", 10002}
	if !reflect.DeepEqual(cleaned["message_ids"], want) {
		t.Fatalf("expected %#v, got %#v", want, cleaned["message_ids"])
	}
}

func TestSanitizeMetadataDropsListsReducedToNothing(t *testing.T) {
	meta := map[string]any{
		"tags": []string{" ", "", "\t"},
	}

	cleaned := vectorstore.SanitizeMetadata(meta)

	if len(cleaned) != 0 {
		t.Fatalf("expected all-blank list dropped, got %#v", cleaned)
	}
}

func TestSanitizeMetadataLeavesInputUntouched(t *testing.T) {
	meta := map[string]any{
		"message_ids": []any{"a", nil},
	}

	_ = vectorstore.SanitizeMetadata(meta)

	if len(meta["message_ids"].([]any)) != 2 {
		t.Fatalf("expected input unmodified, got %#v", meta)
	}
}
