package external

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"

	"github.com/bnb-chain/proof-relayer/config"
	"github.com/bnb-chain/proof-relayer/logging"
)

// ChainClient reads endpoint events and submits relayer transactions. Transactions are sent
// one at a time so that pending nonces never collide.
type ChainClient struct {
	cfg       *config.ChainConfig
	ethClient *ethclient.Client
	contract  *bind.BoundContract
	endpoint  common.Address

	relayer  common.Address
	txOpts   *bind.TransactOpts
	gasLimit uint64

	txMtx    sync.Mutex
	wsMtx    sync.Mutex
	wsClient *ethclient.Client
}

func NewChainClient(ctx context.Context, cfg *config.ChainConfig, privateKeyHex string) (*ChainClient, error) {
	ethClient, err := ethclient.DialContext(ctx, cfg.RPCAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCAddr, err)
	}
	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	if chainID.Uint64() != cfg.ChainID {
		return nil, fmt.Errorf("chain id mismatch, rpc reports %s, config has %d", chainID, cfg.ChainID)
	}
	privKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid relayer private key: %w", err)
	}
	txOpts, err := bind.NewKeyedTransactorWithChainID(privKey, chainID)
	if err != nil {
		return nil, err
	}
	endpoint := common.HexToAddress(cfg.EndpointContract)
	return &ChainClient{
		cfg:       cfg,
		ethClient: ethClient,
		contract:  bind.NewBoundContract(endpoint, endpointABI, ethClient, ethClient, ethClient),
		endpoint:  endpoint,
		relayer:   crypto.PubkeyToAddress(privKey.PublicKey),
		txOpts:    txOpts,
		gasLimit:  cfg.GetGasLimit(),
	}, nil
}

func (c *ChainClient) RelayerAddress() common.Address {
	return c.relayer
}

// FetchEvents returns the endpoint events called name emitted in blocks [from, to], in log
// order.
func (c *ChainClient) FetchEvents(ctx context.Context, name string, from, to uint64) ([]*Event, error) {
	ev, ok := endpointABI.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint event %s", name)
	}
	logs, err := c.ethClient.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.endpoint},
		Topics:    [][]common.Hash{{ev.ID}},
	})
	if err != nil {
		return nil, err
	}
	events := make([]*Event, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		e, err := decodeLog(c.contract, name, l)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func decodeLog(contract *bind.BoundContract, name string, l types.Log) (*Event, error) {
	args := newEventArgs(name)
	if args == nil {
		return nil, fmt.Errorf("unknown endpoint event %s", name)
	}
	if err := contract.UnpackLog(args, name, l); err != nil {
		return nil, fmt.Errorf("failed to unpack %s log of tx %s: %w", name, l.TxHash.Hex(), err)
	}
	return toEvent(name, l, args), nil
}

// SubscribeNewHead delivers new block heights to ch. A websocket subscription is opened from
// scratch on every call when ws_addr is configured, otherwise heights come from polling
// eth_blockNumber.
func (c *ChainClient) SubscribeNewHead(ctx context.Context, ch chan<- uint64) (event.Subscription, error) {
	if c.cfg.WSAddr == "" {
		return PollHeads(c.ethClient.BlockNumber, c.cfg.GetHeadPollInterval(), ch), nil
	}

	c.wsMtx.Lock()
	defer c.wsMtx.Unlock()
	if c.wsClient != nil {
		c.wsClient.Close()
		c.wsClient = nil
	}
	wsClient, err := ethclient.DialContext(ctx, c.cfg.WSAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", c.cfg.WSAddr, err)
	}
	headers := make(chan *types.Header, 16)
	sub, err := wsClient.SubscribeNewHead(ctx, headers)
	if err != nil {
		wsClient.Close()
		return nil, err
	}
	c.wsClient = wsClient
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case header := <-headers:
				select {
				case ch <- header.Number.Uint64():
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func (c *ChainClient) CloseOrder(ctx context.Context, id *big.Int, proofs [][]byte, price *big.Int) (common.Hash, error) {
	return c.transact(ctx, methodCloseOrder, id, proofs, price)
}

func (c *ChainClient) SetProducer(ctx context.Context, id *big.Int, producer common.Address) (common.Hash, error) {
	return c.transact(ctx, methodSetProducer, id, producer)
}

// transact simulates the call first so that reverts are classified from their reason before
// any gas is spent, then submits it without waiting for inclusion.
func (c *ChainClient) transact(ctx context.Context, method string, args ...interface{}) (common.Hash, error) {
	input, err := endpointABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, err
	}

	c.txMtx.Lock()
	defer c.txMtx.Unlock()

	_, err = c.ethClient.CallContract(ctx, ethereum.CallMsg{
		From: c.relayer,
		To:   &c.endpoint,
		Gas:  c.gasLimit,
		Data: input,
	}, nil)
	if err != nil {
		return common.Hash{}, ClassifyError(method, err)
	}

	opts := *c.txOpts
	opts.Context = ctx
	opts.GasLimit = c.gasLimit
	tx, err := c.contract.RawTransact(&opts, input)
	if err != nil {
		return common.Hash{}, ClassifyError(method, err)
	}
	logging.Logger.Debugf("submitted %s tx %s nonce=%d", method, tx.Hash().Hex(), tx.Nonce())
	return tx.Hash(), nil
}

func (c *ChainClient) Close() {
	c.wsMtx.Lock()
	if c.wsClient != nil {
		c.wsClient.Close()
		c.wsClient = nil
	}
	c.wsMtx.Unlock()
	c.ethClient.Close()
}
