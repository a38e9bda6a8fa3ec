package backend

import (
	"context"
	"time"

	"github.com/quorumlabs/council/pkg/chats/chat"
)

// QueryMany queries all models concurrently and waits for every request to
// finish or fail. The returned set has an entry for every requested model, in
// request order; failed requests carry the absent Result.
func QueryMany(ctx context.Context, q Querier, models []string, c *chat.Chat, opts Options) *ResultSet {
	results := make([]Result, len(models))

	done := make(chan int, len(models))
	for i, model := range models {
		go func(i int, model string) {
			results[i] = q.Query(ctx, model, c, opts)
			done <- i
		}(i, model)
	}

	for range models {
		<-done
	}

	set := NewResultSet()
	for i, model := range models {
		set.Set(model, results[i])
	}
	return set
}

// QueryManyStreaming starts a request for every model at call time and
// returns a channel that yields one Completion per model in finish order,
// fastest first. The channel is closed after the last completion. The channel
// is buffered to the model count, so a caller that stops reading early does
// not block the remaining workers; their results are simply discarded when
// they finish.
func QueryManyStreaming(ctx context.Context, q Querier, models []string, c *chat.Chat, opts Options) <-chan Completion {
	out := make(chan Completion, len(models))

	done := make(chan struct{}, len(models))
	for _, model := range models {
		go func(model string) {
			out <- Completion{Model: model, Result: q.Query(ctx, model, c, opts)}
			done <- struct{}{}
		}(model)
	}

	go func() {
		for range models {
			<-done
		}
		close(out)
	}()

	return out
}

// QueryStage queries all models concurrently and returns as soon as either
// every request has completed, or the stage timeout has elapsed and at least
// minResults requests have completed. A fast failure occupies a quorum slot
// the same as a success.
//
// minResults is a hard floor and stageTimeout a soft target: when the timeout
// expires below the floor, the call keeps waiting until the floor is met or
// every request has finished, whichever comes first. If all requests finish
// below the floor (total failures exhausted the model set), the call still
// returns. minResults >= len(models) degrades to an exhaustive wait;
// minResults <= 0 returns at the timeout regardless of completions.
//
// On early return, requests still in flight are cancelled through the derived
// context and their eventual results discarded. Pending models are absent
// from the returned set, not present with a failure placeholder.
func QueryStage(ctx context.Context, q Querier, models []string, c *chat.Chat, stageTimeout time.Duration, minResults int, opts Options) *ResultSet {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	completions := make(chan Completion, len(models))
	for _, model := range models {
		go func(model string) {
			completions <- Completion{Model: model, Result: q.Query(ctx, model, c, opts)}
		}(model)
	}

	timer := time.NewTimer(stageTimeout)
	defer timer.Stop()

	set := NewResultSet()
	deadlinePassed := false

	for set.Len() < len(models) {
		if deadlinePassed {
			if set.Len() >= minResults {
				break
			}
			// Past the soft deadline but below the quorum floor: wait on
			// completions alone.
			comp := <-completions
			set.Set(comp.Model, comp.Result)
			continue
		}

		select {
		case comp := <-completions:
			set.Set(comp.Model, comp.Result)
		case <-timer.C:
			deadlinePassed = true
		}
	}

	return set
}
