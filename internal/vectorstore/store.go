package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"mnemo/internal/logging"
)

const (
	eventsCollection   = "cognitive_events"
	profilesCollection = "cognitive_profiles"
)

// Embedder converts texts into embedding vectors. The model behind it is an
// external collaborator; tests inject a deterministic implementation.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Result is one semantic search hit.
type Result struct {
	ID         string
	Document   string
	Metadata   map[string]string
	Similarity float32
}

// Store manages the embedded vector index.
type Store struct {
	events   *chromem.Collection
	profiles *chromem.Collection
	embedder Embedder
	logger   *slog.Logger
}

// Open initializes the index at path, or in memory when path is empty.
func Open(path string, embedder Embedder, logger *slog.Logger) (*Store, error) {
	if embedder == nil {
		return nil, errors.New("vector store requires an embedder")
	}

	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db: %w", err)
		}
	}

	events, err := db.GetOrCreateCollection(eventsCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create events collection: %w", err)
	}
	profiles, err := db.GetOrCreateCollection(profilesCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create profiles collection: %w", err)
	}

	return &Store{
		events:   events,
		profiles: profiles,
		embedder: embedder,
		logger:   logging.NewComponentLogger(logger, "vectorstore"),
	}, nil
}

// UpsertEvent stores or replaces an event document.
func (s *Store) UpsertEvent(ctx context.Context, id, document string, metadata map[string]any) error {
	return s.upsert(ctx, s.events, id, document, metadata)
}

// UpsertProfile stores or replaces a profile document.
func (s *Store) UpsertProfile(ctx context.Context, id, document string, metadata map[string]any) error {
	return s.upsert(ctx, s.profiles, id, document, metadata)
}

// QueryEvents returns up to topK events semantically close to query,
// optionally restricted by metadata equality filters.
func (s *Store) QueryEvents(ctx context.Context, query string, topK int, where map[string]string) ([]Result, error) {
	return s.query(ctx, s.events, query, topK, where)
}

// QueryProfiles returns up to topK profiles semantically close to query.
func (s *Store) QueryProfiles(ctx context.Context, query string, topK int, where map[string]string) ([]Result, error) {
	return s.query(ctx, s.profiles, query, topK, where)
}

// EventCount reports the number of stored event documents.
func (s *Store) EventCount() int {
	return s.events.Count()
}

func (s *Store) upsert(ctx context.Context, col *chromem.Collection, id, document string, metadata map[string]any) error {
	embeddings, err := s.embedder.Embed(ctx, []string{document})
	if err != nil {
		return fmt.Errorf("embed document %s: %w", id, err)
	}
	if len(embeddings) != 1 {
		return fmt.Errorf("embed document %s: expected 1 vector, got %d", id, len(embeddings))
	}

	doc := chromem.Document{
		ID:        id,
		Content:   document,
		Embedding: embeddings[0],
		Metadata:  encodeMetadata(SanitizeMetadata(metadata)),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("upsert document %s: %w", id, err)
	}
	s.logger.Debug("document upserted",
		logging.String("document_id", id),
		logging.String("collection", col.Name))
	return nil
}

func (s *Store) query(ctx context.Context, col *chromem.Collection, query string, topK int, where map[string]string) ([]Result, error) {
	if topK <= 0 {
		topK = 1
	}
	// chromem rejects nResults beyond the collection size.
	if count := col.Count(); count == 0 {
		return nil, nil
	} else if topK > count {
		topK = count
	}

	embeddings, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(embeddings))
	}

	// A where filter can shrink the candidate set below topK, which chromem
	// also rejects; back off until the query fits.
	var raw []chromem.Result
	for ; topK >= 1; topK-- {
		raw, err = col.QueryEmbedding(ctx, embeddings[0], topK, where, nil)
		if err == nil {
			break
		}
		if strings.Contains(err.Error(), "nResults must be") {
			continue
		}
		return nil, fmt.Errorf("query %s: %w", col.Name, err)
	}
	if err != nil {
		return nil, nil
	}
	results := make([]Result, 0, len(raw))
	for _, hit := range raw {
		results = append(results, Result{
			ID:         hit.ID,
			Document:   hit.Content,
			Metadata:   hit.Metadata,
			Similarity: hit.Similarity,
		})
	}
	return results, nil
}

// encodeMetadata flattens sanitized metadata into the string map the index
// stores: strings stay as-is, other scalars use their canonical text form,
// and lists are JSON-encoded.
func encodeMetadata(meta map[string]any) map[string]string {
	encoded := make(map[string]string, len(meta))
	for key, value := range meta {
		switch v := value.(type) {
		case string:
			encoded[key] = v
		case bool:
			encoded[key] = strconv.FormatBool(v)
		case int:
			encoded[key] = strconv.Itoa(v)
		case int64:
			encoded[key] = strconv.FormatInt(v, 10)
		case float64:
			encoded[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			if data, err := json.Marshal(v); err == nil {
				encoded[key] = string(data)
			}
		}
	}
	return encoded
}
