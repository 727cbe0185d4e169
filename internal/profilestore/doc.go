// Package profilestore persists entity profiles in SQLite. Each profile is
// keyed by (entity_type, entity_id); writes snapshot the previous content
// into a revisions table and prune snapshots beyond the configured keep
// count, so recent history survives a bad merge.
package profilestore
