package relayer

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/mock"

	"github.com/bnb-chain/proof-relayer/checkpoint"
	"github.com/bnb-chain/proof-relayer/external"
	"github.com/bnb-chain/proof-relayer/external/proofmarket"
)

type memStore struct {
	mtx   sync.Mutex
	value uint64
}

func (m *memStore) Load() (uint64, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.value, nil
}

func (m *memStore) Save(value uint64) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.value = value
	return nil
}

func openCheckpoint(kind checkpoint.Kind, value uint64) *checkpoint.Checkpoint {
	cp, err := checkpoint.Open(kind, &memStore{value: value})
	if err != nil {
		panic(err)
	}
	return cp
}

type fetchCall struct {
	Name     string
	From, To uint64
}

// fakeSource serves canned events and records every range it was asked for.
type fakeSource struct {
	mtx     sync.Mutex
	calls   []fetchCall
	events  map[string][]*external.Event
	fetchFn func(name string, from, to uint64) error

	subscribeFn func(ch chan<- uint64) event.Subscription
	subscribes  int
}

func (f *fakeSource) FetchEvents(_ context.Context, name string, from, to uint64) ([]*external.Event, error) {
	f.mtx.Lock()
	f.calls = append(f.calls, fetchCall{Name: name, From: from, To: to})
	fn := f.fetchFn
	f.mtx.Unlock()
	if fn != nil {
		if err := fn(name, from, to); err != nil {
			return nil, err
		}
	}
	return f.events[name], nil
}

func (f *fakeSource) SubscribeNewHead(_ context.Context, ch chan<- uint64) (event.Subscription, error) {
	f.mtx.Lock()
	f.subscribes++
	fn := f.subscribeFn
	f.mtx.Unlock()
	if fn == nil {
		return nil, errors.New("no head source")
	}
	return fn(ch), nil
}

func (f *fakeSource) Calls() []fetchCall {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

func (f *fakeSource) Subscribes() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.subscribes
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) SubmitOrder(ctx context.Context, order *proofmarket.OrderRequest) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// fakeMarket is an in-memory proof market.
type fakeMarket struct {
	mtx       sync.Mutex
	orders    []*proofmarket.Order
	queryErr  error
	queries   [][]proofmarket.Filter
	proofs    map[string]string
	proposals map[string]string
	producers map[string]*string
	lookups   map[string]int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		proofs:    map[string]string{},
		proposals: map[string]string{},
		producers: map[string]*string{},
		lookups:   map[string]int{},
	}
}

func (f *fakeMarket) QueryOrders(_ context.Context, filters []proofmarket.Filter) ([]*proofmarket.Order, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.queries = append(f.queries, filters)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.orders, nil
}

func (f *fakeMarket) GetProof(_ context.Context, key string) (*proofmarket.Proof, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	proof, ok := f.proofs[key]
	if !ok {
		return nil, proofmarket.ErrNotFound
	}
	return &proofmarket.Proof{Proof: proof}, nil
}

func (f *fakeMarket) GetProposal(_ context.Context, key string) (*proofmarket.Proposal, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	sender, ok := f.proposals[key]
	if !ok {
		return nil, proofmarket.ErrNotFound
	}
	return &proofmarket.Proposal{Sender: sender}, nil
}

func (f *fakeMarket) GetProducer(_ context.Context, name string) (*proofmarket.Producer, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.lookups[name]++
	addr, ok := f.producers[name]
	if !ok {
		return nil, proofmarket.ErrNotFound
	}
	return &proofmarket.Producer{EthAddress: addr}, nil
}

type closeCall struct {
	Id     string
	Proofs [][]byte
	Price  string
}

type producerCall struct {
	Id       string
	Producer common.Address
}

// fakeChain records submitted transactions. Errors are keyed by order id.
type fakeChain struct {
	mtx         sync.Mutex
	relayer     common.Address
	closes      []closeCall
	producers   []producerCall
	closeErrs   map[string]error
	producerErr map[string]error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		relayer:     common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
		closeErrs:   map[string]error{},
		producerErr: map[string]error{},
	}
}

func (f *fakeChain) RelayerAddress() common.Address {
	return f.relayer
}

func (f *fakeChain) CloseOrder(_ context.Context, id *big.Int, proofs [][]byte, price *big.Int) (common.Hash, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.closes = append(f.closes, closeCall{Id: id.String(), Proofs: proofs, Price: price.String()})
	if err := f.closeErrs[id.String()]; err != nil {
		return common.Hash{}, err
	}
	return common.BigToHash(id), nil
}

func (f *fakeChain) SetProducer(_ context.Context, id *big.Int, producer common.Address) (common.Hash, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.producers = append(f.producers, producerCall{Id: id.String(), Producer: producer})
	if err := f.producerErr[id.String()]; err != nil {
		return common.Hash{}, err
	}
	return common.BigToHash(id), nil
}

func (f *fakeChain) Closes() []closeCall {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]closeCall(nil), f.closes...)
}

func (f *fakeChain) Producers() []producerCall {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]producerCall(nil), f.producers...)
}
