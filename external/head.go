package external

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/event"
)

// PollHeads turns a block number getter into a new-head subscription. Only heights above the
// last delivered one are sent. The first failed poll ends the subscription with that error.
func PollHeads(blockNumber func(ctx context.Context) (uint64, error), interval time.Duration, ch chan<- uint64) event.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last uint64
		for {
			ctx, cancel := context.WithTimeout(context.Background(), interval+5*time.Second)
			height, err := blockNumber(ctx)
			cancel()
			if err != nil {
				return err
			}
			if height > last {
				last = height
				select {
				case ch <- height:
				case <-quit:
					return nil
				}
			}
			select {
			case <-ticker.C:
			case <-quit:
				return nil
			}
		}
	})
}
