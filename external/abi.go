package external

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	EventOrderCreated = "OrderCreated"
	EventOrderClosed  = "OrderClosed"

	methodCloseOrder  = "closeOrder"
	methodSetProducer = "setProducer"
)

// EndpointABI is the subset of the proof market endpoint interface the relayer touches.
const EndpointABI = `[
  {
    "type": "event",
    "name": "OrderCreated",
    "anonymous": false,
    "inputs": [
      {"name": "id", "type": "uint256", "indexed": true},
      {"name": "orderInput", "type": "tuple", "indexed": false, "internalType": "struct IProofMarketEndpoint.OrderInput", "components": [
        {"name": "statementId", "type": "uint256"},
        {"name": "publicInputs", "type": "uint256[][]"},
        {"name": "price", "type": "uint256"}
      ]},
      {"name": "buyer", "type": "address", "indexed": true}
    ]
  },
  {
    "type": "event",
    "name": "OrderClosed",
    "anonymous": false,
    "inputs": [
      {"name": "id", "type": "uint256", "indexed": true}
    ]
  },
  {
    "type": "function",
    "name": "closeOrder",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "id", "type": "uint256"},
      {"name": "proof", "type": "bytes[]"},
      {"name": "finalPrice", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "setProducer",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "id", "type": "uint256"},
      {"name": "producer", "type": "address"}
    ],
    "outputs": []
  }
]`

var endpointABI = mustParseABI(EndpointABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// OrderInput mirrors the orderInput tuple. Field order follows the tuple components.
type OrderInput struct {
	StatementId  *big.Int
	PublicInputs [][]*big.Int
	Price        *big.Int
}

type OrderCreated struct {
	Id         *big.Int
	OrderInput OrderInput
	Buyer      common.Address
}

type OrderClosed struct {
	Id *big.Int
}

// Event is one decoded endpoint log. Args holds *OrderCreated or *OrderClosed.
type Event struct {
	Name        string
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Args        interface{}
}

func newEventArgs(name string) interface{} {
	switch name {
	case EventOrderCreated:
		return &OrderCreated{}
	case EventOrderClosed:
		return &OrderClosed{}
	}
	return nil
}

func toEvent(name string, log types.Log, args interface{}) *Event {
	return &Event{
		Name:        name,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
		Args:        args,
	}
}
