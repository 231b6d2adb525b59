package relayer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/bnb-chain/proof-relayer/cache"
	"github.com/bnb-chain/proof-relayer/checkpoint"
	"github.com/bnb-chain/proof-relayer/external"
	"github.com/bnb-chain/proof-relayer/external/proofmarket"
	"github.com/bnb-chain/proof-relayer/logging"
	"github.com/bnb-chain/proof-relayer/metrics"
	"github.com/bnb-chain/proof-relayer/util"
)

const relayerFetchedKey = "relayerFetched"

type ProofMarket interface {
	QueryOrders(ctx context.Context, filters []proofmarket.Filter) ([]*proofmarket.Order, error)
	GetProof(ctx context.Context, proofKey string) (*proofmarket.Proof, error)
	GetProposal(ctx context.Context, proposalKey string) (*proofmarket.Proposal, error)
	GetProducer(ctx context.Context, name string) (*proofmarket.Producer, error)
}

// OrderCloser is the write side of the endpoint contract.
type OrderCloser interface {
	RelayerAddress() common.Address
	CloseOrder(ctx context.Context, id *big.Int, proofs [][]byte, price *big.Int) (common.Hash, error)
	SetProducer(ctx context.Context, id *big.Int, producer common.Address) (common.Hash, error)
}

// Reconciler polls the proof market for completed orders and closes them on chain.
type Reconciler struct {
	market      ProofMarket
	chain       OrderCloser
	sender      string
	producers   *cache.ProducerCache
	interval    time.Duration
	concurrency int

	completed  *checkpoint.Checkpoint
	processing *checkpoint.Checkpoint
}

type ReconcilerOption func(*Reconciler)

func WithConcurrency(n int) ReconcilerOption {
	return func(r *Reconciler) {
		r.concurrency = n
	}
}

// WithStatusRelay enables the producer-only pass over orders still being proven, tracked by
// the processing checkpoint.
func WithStatusRelay(processing *checkpoint.Checkpoint) ReconcilerOption {
	return func(r *Reconciler) {
		r.processing = processing
	}
}

func NewReconciler(market ProofMarket, chain OrderCloser, sender string, completed *checkpoint.Checkpoint,
	producers *cache.ProducerCache, interval time.Duration, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		market:    market,
		chain:     chain,
		sender:    sender,
		producers: producers,
		interval:  interval,
		completed: completed,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles immediately and then once per interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	logging.Logger.Infof("reconciler started, completed checkpoint %d", r.completed.Value())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if err := r.RelayProofs(ctx); err != nil {
			logging.Logger.Errorf("failed to relay proofs, err=%v", err)
		}
		if r.processing != nil {
			if err := r.RelayStatuses(ctx); err != nil {
				logging.Logger.Errorf("failed to relay statuses, err=%v", err)
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// RelayProofs runs one reconciliation cycle over completed orders. The completed checkpoint
// moves to the largest updatedOn of the batch whatever the outcome of each order.
func (r *Reconciler) RelayProofs(ctx context.Context) error {
	orders, err := r.market.QueryOrders(ctx, []proofmarket.Filter{
		{Key: "sender", Value: r.sender},
		{Key: "status", Value: proofmarket.StatusCompleted},
		{Key: "updatedOn", Value: r.completed.Value(), Op: proofmarket.OpGreater},
	})
	if err != nil {
		return fmt.Errorf("failed to query completed orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}
	logging.Logger.Infof("relaying %d proofs", len(orders))
	r.forEach(ctx, orders, r.closeOrder)
	r.advance(r.completed, orders)
	return nil
}

// RelayStatuses sets the producer of orders that are not completed yet.
func (r *Reconciler) RelayStatuses(ctx context.Context) error {
	if r.processing == nil {
		return nil
	}
	orders, err := r.market.QueryOrders(ctx, []proofmarket.Filter{
		{Key: "sender", Value: r.sender},
		{Key: "status", Value: proofmarket.StatusCreated, Op: proofmarket.OpContains},
		{Key: "updatedOn", Value: r.processing.Value(), Op: proofmarket.OpGreater},
		{Key: relayerFetchedKey, Value: nil},
	})
	if err != nil {
		return fmt.Errorf("failed to query processing orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}
	logging.Logger.Infof("relaying %d statuses", len(orders))
	r.forEach(ctx, orders, func(ctx context.Context, order *proofmarket.Order) {
		id, err := parseOrderId(order.EthId)
		if err != nil {
			logging.Logger.Errorf("%v", err)
			return
		}
		r.setProducer(ctx, id, order)
	})
	r.advance(r.processing, orders)
	return nil
}

func (r *Reconciler) forEach(ctx context.Context, orders []*proofmarket.Order, fn func(context.Context, *proofmarket.Order)) {
	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for _, order := range orders {
		order := order
		g.Go(func() error {
			fn(ctx, order)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Reconciler) advance(cp *checkpoint.Checkpoint, orders []*proofmarket.Order) {
	var maxUpdatedOn uint64
	for _, order := range orders {
		if order.UpdatedOn > maxUpdatedOn {
			maxUpdatedOn = order.UpdatedOn
		}
	}
	if maxUpdatedOn == 0 {
		return
	}
	if _, err := cp.Advance(maxUpdatedOn); err != nil {
		logging.Logger.Errorf("%v", err)
	}
	metrics.ReconciledTimestampGauge.WithLabelValues(cp.Kind().Status()).Set(float64(cp.Value()))
}

func (r *Reconciler) closeOrder(ctx context.Context, order *proofmarket.Order) {
	id, err := parseOrderId(order.EthId)
	if err != nil {
		logging.Logger.Errorf("%v", err)
		metrics.ClosedOrdersCounter.WithLabelValues(metrics.ResultFailed).Inc()
		return
	}
	r.setProducer(ctx, id, order)

	proofs, price, err := r.closeArgs(ctx, order)
	if err != nil {
		logging.Logger.Errorf("failed to prepare close of order %s, err=%v", order.EthId, err)
		metrics.ClosedOrdersCounter.WithLabelValues(metrics.ResultFailed).Inc()
		return
	}
	logging.Logger.Infof("closing order %s with proof %s and price %s", order.EthId, order.ProofKey, price)
	tx, err := r.chain.CloseOrder(ctx, id, proofs, price)
	if err != nil {
		if errors.Is(err, external.ErrOrderNotOpen) {
			logging.Logger.Infof("order %s is not open, skipping", order.EthId)
			metrics.ClosedOrdersCounter.WithLabelValues(metrics.ResultAlreadyClosed).Inc()
			return
		}
		logging.Logger.Errorf("failed to close order %s, err=%v", order.EthId, err)
		metrics.ClosedOrdersCounter.WithLabelValues(metrics.ResultFailed).Inc()
		return
	}
	logging.Logger.Infof("order %s close submitted, tx=%s", order.EthId, tx.Hex())
	metrics.ClosedOrdersCounter.WithLabelValues(metrics.ResultSuccess).Inc()
}

func (r *Reconciler) closeArgs(ctx context.Context, order *proofmarket.Order) ([][]byte, *big.Int, error) {
	proof, err := r.market.GetProof(ctx, order.ProofKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch proof %s: %w", order.ProofKey, err)
	}
	proofBz, err := util.DecodeProof(proof.Proof)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid proof %s: %w", order.ProofKey, err)
	}
	price, err := util.EtherToWei(order.Cost)
	if err != nil {
		return nil, nil, err
	}
	return [][]byte{proofBz}, price, nil
}

// setProducer never fails the order: the close is attempted whatever happens here.
func (r *Reconciler) setProducer(ctx context.Context, id *big.Int, order *proofmarket.Order) {
	producer, err := r.ResolveProducer(ctx, order)
	if err != nil {
		logging.Logger.Errorf("failed to resolve producer of order %s, err=%v", order.EthId, err)
		return
	}
	logging.Logger.Infof("setting producer %s for order %s", producer.Hex(), order.EthId)
	if _, err = r.chain.SetProducer(ctx, id, producer); err != nil {
		if errors.Is(err, external.ErrOrderNotOpen) {
			logging.Logger.Infof("order %s is not open, skipping producer", order.EthId)
			return
		}
		logging.Logger.Errorf("failed to set producer of order %s, err=%v", order.EthId, err)
	}
}

// ResolveProducer follows proposal -> producer name -> payout address. Producers without a
// well formed address are paid at the relayer address.
func (r *Reconciler) ResolveProducer(ctx context.Context, order *proofmarket.Order) (common.Address, error) {
	proposal, err := r.market.GetProposal(ctx, order.ProposalKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to fetch proposal %s: %w", order.ProposalKey, err)
	}
	name := proposal.Sender
	if r.producers != nil {
		if addr, ok := r.producers.Get(name); ok {
			return addr, nil
		}
	}
	producer, err := r.market.GetProducer(ctx, name)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to fetch producer %s: %w", name, err)
	}
	if !validProducerAddress(producer.EthAddress) {
		logging.Logger.Infof("producer %s has no address, using relayer address", name)
		return r.chain.RelayerAddress(), nil
	}
	addr := common.HexToAddress(*producer.EthAddress)
	if r.producers != nil {
		r.producers.Set(name, addr)
	}
	return addr, nil
}

func validProducerAddress(addr *string) bool {
	return addr != nil && len(*addr) == 2+2*common.AddressLength && strings.HasPrefix(*addr, "0x") && common.IsHexAddress(*addr)
}

func parseOrderId(ethId string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(ethId, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid order id %q", ethId)
	}
	return id, nil
}
