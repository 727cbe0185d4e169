// Package worker drives the consumer loop over the durable job queue. Each
// iteration claims one job, hands it to the injected Processor, and reports
// exactly one outcome: complete, requeue (transient failure within the retry
// budget), or fail. The loop also owns queue maintenance cadences: stale-job
// recovery and failed-directory cleanup run every few polls.
//
// The retry budget lives here, not in the queue: the queue records retry
// counts but never caps them.
package worker
