// Package preflight provides readiness checks for the filesystem paths the
// pipeline persists into. The daemon runs RunAll before starting the worker
// so a doomed run (unwritable data directory, full volume) is reported up
// front instead of surfacing later as per-job failures.
package preflight
