package jobqueue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payload is the producer-supplied job body. The queue treats it as opaque
// except for the reserved bookkeeping keys below and the two identifier keys
// folded into the job id.
type Payload = map[string]any

const (
	// Bookkeeping keys written by the queue itself.
	retryCountKey  = "_retry_count"
	lastErrorKey   = "_last_error"
	failedErrorKey = "error"

	// Producer keys folded into the job id.
	requestIDKey = "request_id"
	endSeqKey    = "end_seq"
)

// NewJobID derives a job identifier from the payload's request_id and end_seq
// plus the current wall clock in milliseconds. A missing request_id gets a
// fresh UUID; a missing end_seq defaults to 0.
func NewJobID(payload Payload, now time.Time) string {
	requestID := stringValue(payload, requestIDKey)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return fmt.Sprintf("%s_%d_%d", requestID, intValue(payload, endSeqKey), now.UnixMilli())
}

// RetryCount reports how many times the job has been requeued.
func RetryCount(payload Payload) int {
	return int(intValue(payload, retryCountKey))
}

// LastError returns the most recent transient failure recorded on the job.
func LastError(payload Payload) string {
	return stringValue(payload, lastErrorKey)
}

func stringValue(payload Payload, key string) string {
	value, _ := payload[key].(string)
	return strings.TrimSpace(value)
}

// intValue tolerates the numeric types a payload may carry depending on
// whether it was built in memory or decoded from JSON.
func intValue(payload Payload, key string) int64 {
	switch v := payload[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	return 0
}
