package relayer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/bnb-chain/proof-relayer/cache"
	"github.com/bnb-chain/proof-relayer/checkpoint"
	"github.com/bnb-chain/proof-relayer/external"
	"github.com/bnb-chain/proof-relayer/external/proofmarket"
)

var producerAddr = "0x00000000000000000000000000000000000000a1"

func strPtr(s string) *string { return &s }

func newTestReconciler(t *testing.T, market *fakeMarket, chain *fakeChain, completed uint64, opts ...ReconcilerOption) *Reconciler {
	producers, err := cache.NewProducerCache(16)
	require.NoError(t, err)
	cp := openCheckpoint(checkpoint.Timestamp(proofmarket.StatusCompleted), completed)
	return NewReconciler(market, chain, "relayer", cp, producers, time.Millisecond, opts...)
}

func completedOrder(ethId string, updatedOn uint64) *proofmarket.Order {
	return &proofmarket.Order{
		EthId:       ethId,
		Cost:        0.5,
		ProofKey:    "proof-" + ethId,
		ProposalKey: "proposal-" + ethId,
		Status:      proofmarket.StatusCompleted,
		UpdatedOn:   updatedOn,
	}
}

func seedOrder(market *fakeMarket, order *proofmarket.Order, producer string) {
	market.orders = append(market.orders, order)
	market.proofs[order.ProofKey] = "0x0102"
	market.proposals[order.ProposalKey] = producer
}

func TestRelayProofsEmptyBatchKeepsCheckpoint(t *testing.T) {
	market := newFakeMarket()
	chain := newFakeChain()
	r := newTestReconciler(t, market, chain, 100)

	require.NoError(t, r.RelayProofs(context.Background()))
	require.Equal(t, uint64(100), r.completed.Value())
	require.Empty(t, chain.Closes())

	require.Len(t, market.queries, 1)
	filters := market.queries[0]
	require.Equal(t, proofmarket.Filter{Key: "sender", Value: "relayer"}, filters[0])
	require.Equal(t, proofmarket.Filter{Key: "status", Value: proofmarket.StatusCompleted}, filters[1])
	require.Equal(t, proofmarket.Filter{Key: "updatedOn", Value: uint64(100), Op: proofmarket.OpGreater}, filters[2])
}

func TestRelayProofsQueryFailureKeepsCheckpoint(t *testing.T) {
	market := newFakeMarket()
	market.queryErr = errors.New("502 bad gateway")
	r := newTestReconciler(t, market, newFakeChain(), 100)

	require.Error(t, r.RelayProofs(context.Background()))
	require.Equal(t, uint64(100), r.completed.Value())
}

func TestRelayProofsClosesOrders(t *testing.T) {
	market := newFakeMarket()
	market.producers["alice"] = strPtr(producerAddr)
	seedOrder(market, completedOrder("1", 150), "alice")
	chain := newFakeChain()
	r := newTestReconciler(t, market, chain, 100)

	require.NoError(t, r.RelayProofs(context.Background()))

	require.Equal(t, []producerCall{{Id: "1", Producer: common.HexToAddress(producerAddr)}}, chain.Producers())
	closes := chain.Closes()
	require.Len(t, closes, 1)
	require.Equal(t, "1", closes[0].Id)
	require.Equal(t, [][]byte{{1, 2}}, closes[0].Proofs)
	require.Equal(t, "500000000000000000", closes[0].Price)
	require.Equal(t, uint64(150), r.completed.Value())
}

func TestRelayProofsAdvancesPastFailures(t *testing.T) {
	market := newFakeMarket()
	market.producers["alice"] = strPtr(producerAddr)
	seedOrder(market, completedOrder("1", 150), "alice")
	seedOrder(market, completedOrder("2", 300), "alice")
	seedOrder(market, completedOrder("3", 200), "alice")
	// order 3 has no proof available
	delete(market.proofs, "proof-3")

	chain := newFakeChain()
	chain.closeErrs["1"] = &external.ChainError{Kind: external.KindAlreadyClosed, Method: "closeOrder", Reason: "Order is not open"}
	chain.closeErrs["2"] = &external.ChainError{Kind: external.KindFatal, Method: "closeOrder", Reason: "Invalid proof"}
	r := newTestReconciler(t, market, chain, 100, WithConcurrency(2))

	require.NoError(t, r.RelayProofs(context.Background()))

	require.Len(t, chain.Closes(), 2)
	require.Len(t, chain.Producers(), 3)
	require.Equal(t, uint64(300), r.completed.Value())
}

func TestRelayProofsNotOpenOnProducerStillCloses(t *testing.T) {
	market := newFakeMarket()
	market.producers["alice"] = strPtr(producerAddr)
	seedOrder(market, completedOrder("4", 150), "alice")
	chain := newFakeChain()
	chain.producerErr["4"] = external.ClassifyError("setProducer", errors.New("execution reverted: Order is not open"))
	r := newTestReconciler(t, market, chain, 0)

	require.NoError(t, r.RelayProofs(context.Background()))
	require.Len(t, chain.Closes(), 1)
}

func TestResolveProducerFallsBackToRelayer(t *testing.T) {
	market := newFakeMarket()
	market.proposals["p-null"] = "nobody"
	market.producers["nobody"] = nil
	market.proposals["p-short"] = "short"
	market.producers["short"] = strPtr("0x1234")
	market.proposals["p-noprefix"] = "noprefix"
	market.producers["noprefix"] = strPtr("0000000000000000000000000000000000000000a1")
	market.proposals["p-ok"] = "alice"
	market.producers["alice"] = strPtr(producerAddr)

	chain := newFakeChain()
	r := newTestReconciler(t, market, chain, 0)
	ctx := context.Background()

	for _, key := range []string{"p-null", "p-short", "p-noprefix"} {
		addr, err := r.ResolveProducer(ctx, &proofmarket.Order{ProposalKey: key})
		require.NoError(t, err)
		require.Equal(t, chain.RelayerAddress(), addr, key)
	}

	addr, err := r.ResolveProducer(ctx, &proofmarket.Order{ProposalKey: "p-ok"})
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(producerAddr), addr)

	// resolved addresses are cached per producer
	_, err = r.ResolveProducer(ctx, &proofmarket.Order{ProposalKey: "p-ok"})
	require.NoError(t, err)
	require.Equal(t, 1, market.lookups["alice"])

	_, err = r.ResolveProducer(ctx, &proofmarket.Order{ProposalKey: "missing"})
	require.ErrorIs(t, err, proofmarket.ErrNotFound)
}

func TestRelayStatuses(t *testing.T) {
	market := newFakeMarket()
	market.producers["alice"] = strPtr(producerAddr)
	order := completedOrder("5", 500)
	order.Status = proofmarket.StatusCreated
	seedOrder(market, order, "alice")

	chain := newFakeChain()
	processing := openCheckpoint(checkpoint.Timestamp(proofmarket.StatusProcessing), 10)
	r := newTestReconciler(t, market, chain, 0, WithStatusRelay(processing))

	require.NoError(t, r.RelayStatuses(context.Background()))
	require.Len(t, chain.Producers(), 1)
	require.Empty(t, chain.Closes())
	require.Equal(t, uint64(500), processing.Value())

	filters := market.queries[0]
	require.Equal(t, proofmarket.OpContains, filters[1].Op)
	require.Equal(t, proofmarket.Filter{Key: "relayerFetched", Value: nil}, filters[3])
}

func TestRunStopsOnCancel(t *testing.T) {
	market := newFakeMarket()
	r := newTestReconciler(t, market, newFakeChain(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		market.mtx.Lock()
		defer market.mtx.Unlock()
		return len(market.queries) >= 2
	}, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
