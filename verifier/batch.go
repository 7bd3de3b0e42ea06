package verifier

import (
	"context"
	"fmt"
	"sync"
)

// Progress is invoked after each completed address with the running
// count and the batch total.
type Progress func(done, total int)

// VerifyBatch verifies a list of addresses: the list is sliced into
// fixed-size groups and each group is fanned out across a bounded pool
// of workers. Results arrive in no particular order; each carries its
// own address. Failures never abort the batch — a panicking or failing
// verification becomes a result row with an error message.
func (v *Verifier) VerifyBatch(ctx context.Context, emails []string, progress Progress) []*Result {
	total := len(emails)
	results := make([]*Result, 0, total)
	done := 0

	for start := 0; start < total; start += v.cfg.BatchSize {
		end := start + v.cfg.BatchSize
		if end > total {
			end = total
		}
		group := emails[start:end]

		workers := v.cfg.Concurrency
		if workers > len(group) {
			workers = len(group)
		}

		jobs := make(chan string, len(group))
		out := make(chan *Result, len(group))

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for email := range jobs {
					out <- v.verifySafe(ctx, email)
				}
			}()
		}

		for _, email := range group {
			jobs <- email
		}
		close(jobs)
		wg.Wait()
		close(out)

		for r := range out {
			results = append(results, r)
			done++
			if progress != nil {
				progress(done, total)
			}
		}
	}
	return results
}

// verifySafe converts a panic inside a single verification into an
// unknown result so one bad address cannot take down the batch.
func (v *Verifier) verifySafe(ctx context.Context, email string) (r *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			v.logger.WithField("email", email).Errorf("verification panicked: %v", rec)
			r = &Result{
				Email:        email,
				Status:       StatusUnknown,
				ErrorMessage: fmt.Sprintf("internal verification failure: %v", rec),
			}
		}
	}()
	return v.Verify(ctx, email)
}
