package jobqueue

import "errors"

// ErrJobNotFound reports that the processing-directory file for a job id is
// gone. Fail and Requeue return it when a stale-recovery sweep or another
// consumer moved the job first; callers typically log and move on.
var ErrJobNotFound = errors.New("job not found in processing")
