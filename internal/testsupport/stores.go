package testsupport

import (
	"testing"

	"mnemo/internal/config"
	"mnemo/internal/jobqueue"
	"mnemo/internal/logging"
	"mnemo/internal/profilestore"
	"mnemo/internal/vectorstore"
)

// MustOpenQueue opens a jobqueue.Store for tests.
func MustOpenQueue(t testing.TB, cfg *config.Config) *jobqueue.Store {
	t.Helper()

	store, err := jobqueue.Open(cfg.QueueDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("jobqueue.Open: %v", err)
	}
	return store
}

// MustOpenProfiles opens a profilestore.Store for tests and registers cleanup.
func MustOpenProfiles(t testing.TB, cfg *config.Config) *profilestore.Store {
	t.Helper()

	store, err := profilestore.Open(cfg.ProfileDBPath(), cfg.Cognitive.RevisionKeep)
	if err != nil {
		t.Fatalf("profilestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenVectors opens an in-memory vectorstore.Store for tests.
func MustOpenVectors(t testing.TB) *vectorstore.Store {
	t.Helper()

	store, err := vectorstore.Open("", vectorstore.NewHashEmbedder(16), logging.NewNop())
	if err != nil {
		t.Fatalf("vectorstore.Open: %v", err)
	}
	return store
}
