// Package logging builds the shared slog logger and attribute helpers used by
// every mnemo component. Format defaults to console output on a terminal and
// JSON elsewhere; file outputs are appended alongside stdout when configured.
package logging
