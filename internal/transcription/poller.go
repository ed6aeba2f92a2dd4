package transcription

import (
	"context"
	"fmt"
	"time"
)

// Poller waits for a job to reach a terminal state by checking its status
// at a fixed interval, at most MaxAttempts times.
type Poller struct {
	Service     StatusGetter
	Interval    time.Duration
	MaxAttempts int

	// OnAttempt, when set, is called after every status check.
	OnAttempt func(attempt int, info *JobInfo)
}

// Wait blocks until the job completes, fails, the attempt budget runs out or
// ctx is cancelled. A FAILED job returns its info along with a
// *JobFailedError.
func (p *Poller) Wait(ctx context.Context, name string) (*JobInfo, error) {
	if p.MaxAttempts <= 0 {
		return nil, fmt.Errorf("poller for %s: max attempts must be positive", name)
	}

	for attempt := 1; ; attempt++ {
		info, err := p.Service.GetJob(ctx, name)
		if err != nil {
			return nil, err
		}
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, info)
		}

		switch info.Status {
		case JobCompleted:
			return info, nil
		case JobFailed:
			return info, &JobFailedError{Name: name, Reason: info.FailureReason}
		}

		if attempt >= p.MaxAttempts {
			return info, fmt.Errorf("%w: %s still %s after %d checks", ErrPollLimit, name, info.Status, attempt)
		}

		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return info, ctx.Err()
		case <-timer.C:
		}
	}
}
