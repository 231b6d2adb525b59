package proofmarket

import "encoding/json"

const (
	StatusCreated   = "created"
	StatusCompleted = "completed"
	// StatusProcessing names the checkpoint of the producer-only pass over orders that are
	// not completed yet.
	StatusProcessing = "processing"

	OpGreater  = ">"
	OpContains = "~"
)

// Filter is one predicate of an order query. An empty Op means equality.
type Filter struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	Op    string      `json:"op,omitempty"`
}

// OrderRequest is the body of POST /request.
type OrderRequest struct {
	Cost         float64     `json:"cost"`
	StatementKey string      `json:"statement_key"`
	Input        interface{} `json:"input"`
	EthId        string      `json:"eth_id"`
}

// Order is an order as listed by GET /request.
type Order struct {
	Key          string          `json:"_key,omitempty"`
	EthId        string          `json:"eth_id"`
	StatementKey string          `json:"statement_key"`
	Cost         float64         `json:"cost"`
	Input        json.RawMessage `json:"input,omitempty"`
	ProofKey     string          `json:"proof_key,omitempty"`
	ProposalKey  string          `json:"proposal_key,omitempty"`
	Status       string          `json:"status"`
	Sender       string          `json:"sender,omitempty"`
	UpdatedOn    uint64          `json:"updatedOn"`
}

type Proof struct {
	Proof string `json:"proof"`
}

type Proposal struct {
	Sender string `json:"sender"`
}

type Producer struct {
	EthAddress *string `json:"eth_address"`
}
