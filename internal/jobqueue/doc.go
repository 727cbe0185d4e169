// Package jobqueue persists deferred memory jobs as JSON files moving through
// three directories: pending, processing, and failed. The directory a job file
// lives in is its state; transitions happen by atomic rename, which is also
// the sole claim-exclusivity mechanism between concurrent consumers.
//
// A job is created by Enqueue, claimed by Dequeue, and leaves the queue via
// Complete (deleted), Fail (moved to failed with the error attached), or
// Requeue (moved back to pending with retry bookkeeping incremented). Jobs
// abandoned in processing are reclaimed by RecoverStale once their file age
// exceeds the lease timeout.
//
// Races where another consumer wins a file between listing and acting are
// expected and skipped; genuine storage errors (permissions, disk full) are
// returned to the caller.
package jobqueue
