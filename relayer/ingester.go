package relayer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/bnb-chain/proof-relayer/checkpoint"
	"github.com/bnb-chain/proof-relayer/external"
	"github.com/bnb-chain/proof-relayer/logging"
	"github.com/bnb-chain/proof-relayer/metrics"
)

var errHeadStreamClosed = errors.New("new head stream closed")

// EventSource is the chain side of the ingester.
type EventSource interface {
	SubscribeNewHead(ctx context.Context, ch chan<- uint64) (event.Subscription, error)
	FetchEvents(ctx context.Context, name string, from, to uint64) ([]*external.Event, error)
}

type EventHandler func(ctx context.Context, e *external.Event) error

// EventDescriptor binds an endpoint event to its handler. Descriptors are processed in the
// order they are given to the ingester.
type EventDescriptor struct {
	Name   string
	Handle EventHandler
}

// Ingester turns new-block notifications into handled endpoint events. The block checkpoint
// only moves once every event of a range has been handled.
type Ingester struct {
	source           EventSource
	descriptors      []EventDescriptor
	checkpoint       *checkpoint.Checkpoint
	resubscribeDelay time.Duration

	polling sync.Mutex
	wg      sync.WaitGroup
}

func NewIngester(source EventSource, cp *checkpoint.Checkpoint, resubscribeDelay time.Duration, descriptors ...EventDescriptor) *Ingester {
	return &Ingester{
		source:           source,
		descriptors:      descriptors,
		checkpoint:       cp,
		resubscribeDelay: resubscribeDelay,
	}
}

// OnNewBlock handles every event in (checkpoint, height]. It returns immediately if another
// poll is in flight or height is not above the checkpoint.
func (i *Ingester) OnNewBlock(ctx context.Context, height uint64) error {
	if !i.polling.TryLock() {
		logging.Logger.Debugf("poll in flight, skip block %d", height)
		return nil
	}
	defer i.polling.Unlock()

	last := i.checkpoint.Value()
	if height <= last {
		return nil
	}
	from := last + 1
	for _, d := range i.descriptors {
		logging.Logger.Debugf("fetching %s events from block %d to %d", d.Name, from, height)
		events, err := i.source.FetchEvents(ctx, d.Name, from, height)
		if err != nil {
			return fmt.Errorf("failed to fetch %s events in [%d, %d]: %w", d.Name, from, height, err)
		}
		if len(events) > 0 {
			logging.Logger.Infof("processing %d %s events in [%d, %d]", len(events), d.Name, from, height)
		}
		for _, e := range events {
			if err = d.Handle(ctx, e); err != nil {
				return fmt.Errorf("failed to handle %s event of tx %s: %w", d.Name, e.TxHash.Hex(), err)
			}
			metrics.HandledEventsCounter.WithLabelValues(d.Name).Inc()
		}
	}

	if _, err := i.checkpoint.Advance(height); err != nil {
		logging.Logger.Errorf("%v", err)
	}
	metrics.ProcessedBlockGauge.Set(float64(height))
	return nil
}

// Run listens for new heads until ctx is done, resubscribing after resubscribeDelay whenever
// the stream fails.
func (i *Ingester) Run(ctx context.Context) {
	defer i.wg.Wait()
	logging.Logger.Infof("ingester started from block %d", i.checkpoint.Value())
	for {
		err := i.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		metrics.ChainStreamErrorsCounter.Inc()
		logging.Logger.Errorf("new head stream failed, resubscribe in %s, err=%v", i.resubscribeDelay, err)
		select {
		case <-time.After(i.resubscribeDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (i *Ingester) listen(ctx context.Context) error {
	heads := make(chan uint64, 16)
	sub, err := i.source.SubscribeNewHead(ctx, heads)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err = <-sub.Err():
			if err == nil {
				err = errHeadStreamClosed
			}
			return err
		case height := <-heads:
			i.wg.Add(1)
			go func() {
				defer i.wg.Done()
				if err := i.OnNewBlock(ctx, height); err != nil {
					logging.Logger.Errorf("failed to process block %d, err=%v", height, err)
				}
			}()
		}
	}
}
