// Package vectorstore wraps the embedded chromem-go index behind the two
// collections the memory pipeline uses: cognitive_events and
// cognitive_profiles. Embeddings come from an injected Embedder; writes
// sanitize metadata first so the index only ever sees scalars and non-empty
// scalar lists. Upserts are content-addressed: writing the same id replaces
// the stored record.
package vectorstore
