package relayer

import (
	"context"
	"sync"

	"github.com/bnb-chain/proof-relayer/cache"
	"github.com/bnb-chain/proof-relayer/checkpoint"
	"github.com/bnb-chain/proof-relayer/config"
	"github.com/bnb-chain/proof-relayer/db"
	"github.com/bnb-chain/proof-relayer/external"
	"github.com/bnb-chain/proof-relayer/external/proofmarket"
	"github.com/bnb-chain/proof-relayer/statement"
)

// StoreFactory returns the store backing the checkpoint of kind.
type StoreFactory func(kind checkpoint.Kind) checkpoint.Store

func FileStoreFactory(dir string) StoreFactory {
	return func(kind checkpoint.Kind) checkpoint.Store {
		return checkpoint.NewFileStoreForKind(dir, kind)
	}
}

func DBStoreFactory(dao db.CheckpointDao) StoreFactory {
	return func(kind checkpoint.Kind) checkpoint.Store {
		return db.NewCheckpointStore(dao, kind.Name())
	}
}

// Chain is everything the relayer needs from the endpoint contract.
type Chain interface {
	EventSource
	OrderCloser
}

// Relayer runs the chain to proof market direction (Ingester) and the proof market to chain
// direction (Reconciler) side by side.
type Relayer struct {
	Ingester   *Ingester
	Reconciler *Reconciler
}

func NewRelayer(cfg *config.Config, chain Chain, market *proofmarket.Client, registry statement.Registry, stores StoreFactory) (*Relayer, error) {
	blockCp, err := checkpoint.Open(checkpoint.BlockHeight(), stores(checkpoint.BlockHeight()))
	if err != nil {
		return nil, err
	}
	completedKind := checkpoint.Timestamp(proofmarket.StatusCompleted)
	completedCp, err := checkpoint.Open(completedKind, stores(completedKind))
	if err != nil {
		return nil, err
	}
	producers, err := cache.NewProducerCache(cfg.RelayerConfig.GetProducerCacheSize())
	if err != nil {
		return nil, err
	}

	opts := []ReconcilerOption{WithConcurrency(cfg.RelayerConfig.ReconcileConcurrency)}
	if cfg.RelayerConfig.RelayStatuses {
		processingKind := checkpoint.Timestamp(proofmarket.StatusProcessing)
		processingCp, err := checkpoint.Open(processingKind, stores(processingKind))
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithStatusRelay(processingCp))
	}

	submitter := NewSubmitter(registry, market)
	return &Relayer{
		Ingester: NewIngester(chain, blockCp, cfg.ChainConfig.GetResubscribeDelay(),
			EventDescriptor{Name: external.EventOrderCreated, Handle: submitter.HandleOrderCreated},
			EventDescriptor{Name: external.EventOrderClosed, Handle: HandleOrderClosed},
		),
		Reconciler: NewReconciler(market, chain, market.Username(), completedCp, producers,
			cfg.RelayerConfig.GetReconcileInterval(), opts...),
	}, nil
}

// Run blocks until ctx is done and both loops have returned.
func (r *Relayer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.Ingester.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		r.Reconciler.Run(ctx)
	}()
	wg.Wait()
}
