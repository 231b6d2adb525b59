package relayer

import (
	"context"

	"github.com/bnb-chain/proof-relayer/external"
	"github.com/bnb-chain/proof-relayer/external/proofmarket"
	"github.com/bnb-chain/proof-relayer/logging"
	"github.com/bnb-chain/proof-relayer/metrics"
	"github.com/bnb-chain/proof-relayer/statement"
	"github.com/bnb-chain/proof-relayer/util"
)

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order *proofmarket.OrderRequest) error
}

// Submitter forwards created chain orders to the proof market. Submission is fire and forget:
// failures are logged and the event still counts as handled.
type Submitter struct {
	registry statement.Registry
	market   OrderSubmitter
}

func NewSubmitter(registry statement.Registry, market OrderSubmitter) *Submitter {
	return &Submitter{
		registry: registry,
		market:   market,
	}
}

func (s *Submitter) HandleOrderCreated(ctx context.Context, e *external.Event) error {
	created, ok := e.Args.(*external.OrderCreated)
	if !ok {
		logging.Logger.Errorf("unexpected %s payload %T in tx %s", e.Name, e.Args, e.TxHash.Hex())
		return nil
	}
	order, err := s.BuildOrder(created)
	if err != nil {
		logging.Logger.Errorf("order %s dropped, err=%v", created.Id, err)
		metrics.SubmittedOrdersCounter.WithLabelValues(metrics.ResultSkipped).Inc()
		return nil
	}
	logging.Logger.Infof("submitting order %s statement=%s cost=%v buyer=%s", order.EthId, order.StatementKey, order.Cost, created.Buyer.Hex())
	if err = s.market.SubmitOrder(ctx, order); err != nil {
		logging.Logger.Errorf("failed to submit order %s, err=%v", order.EthId, err)
		metrics.SubmittedOrdersCounter.WithLabelValues(metrics.ResultFailed).Inc()
		return nil
	}
	logging.Logger.Infof("order %s submitted", order.EthId)
	metrics.SubmittedOrdersCounter.WithLabelValues(metrics.ResultSuccess).Inc()
	return nil
}

// BuildOrder resolves the statement template of a created order and builds the proof market
// request from it.
func (s *Submitter) BuildOrder(created *external.OrderCreated) (*proofmarket.OrderRequest, error) {
	statementKey := created.OrderInput.StatementId.String()
	tmpl, ok := s.registry.Lookup(statementKey)
	if !ok {
		return nil, &UnknownStatementError{StatementKey: statementKey}
	}
	input, err := tmpl.BuildInput(created.OrderInput.PublicInputs)
	if err != nil {
		return nil, err
	}
	return &proofmarket.OrderRequest{
		Cost:         util.WeiToEther(created.OrderInput.Price),
		StatementKey: statementKey,
		Input:        input,
		EthId:        created.Id.String(),
	}, nil
}

// HandleOrderClosed only records the closure; the proof market learns about it on its own.
func HandleOrderClosed(_ context.Context, e *external.Event) error {
	closed, ok := e.Args.(*external.OrderClosed)
	if !ok {
		logging.Logger.Errorf("unexpected %s payload %T in tx %s", e.Name, e.Args, e.TxHash.Hex())
		return nil
	}
	logging.Logger.Infof("order %s closed at block %d", closed.Id, e.BlockNumber)
	return nil
}

type UnknownStatementError struct {
	StatementKey string
}

func (e *UnknownStatementError) Error() string {
	return "unknown statement key " + e.StatementKey
}
