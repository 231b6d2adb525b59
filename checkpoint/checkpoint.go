package checkpoint

import (
	"fmt"
	"sync"

	"github.com/bnb-chain/proof-relayer/types"
)

// Store persists a single progress marker. Implementations are single-writer: exactly one
// Checkpoint owns a Store.
type Store interface {
	// Load returns the persisted value. An absent marker is created with value 0.
	Load() (uint64, error)
	// Save overwrites the persisted value as a whole.
	Save(value uint64) error
}

// Kind tells what a checkpoint measures: a block height, or the updatedOn timestamp of
// orders in one proof market status.
type Kind struct {
	status string
}

func BlockHeight() Kind {
	return Kind{}
}

func Timestamp(status string) Kind {
	return Kind{status: status}
}

func (k Kind) IsTimestamp() bool {
	return k.status != ""
}

func (k Kind) Status() string {
	return k.status
}

func (k Kind) Name() string {
	if k.IsTimestamp() {
		return types.TimestampCheckpointName(k.status)
	}
	return types.BlockCheckpointName()
}

func (k Kind) String() string {
	return k.Name()
}

// Checkpoint is the in-memory owner of a persisted progress marker. Its value never
// decreases.
type Checkpoint struct {
	kind  Kind
	store Store

	mtx   sync.Mutex
	value uint64
}

// Open loads the persisted value of kind from store.
func Open(kind Kind, store Store) (*Checkpoint, error) {
	value, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", kind, err)
	}
	return &Checkpoint{
		kind:  kind,
		store: store,
		value: value,
	}, nil
}

func (c *Checkpoint) Kind() Kind {
	return c.kind
}

func (c *Checkpoint) Value() uint64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.value
}

// Advance moves the checkpoint to value and persists it. Values not above the current one
// are ignored and reported as not advanced. When persisting fails the in-memory value still
// moves forward and the error is returned for the caller to log.
func (c *Checkpoint) Advance(value uint64) (bool, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if value <= c.value {
		return false, nil
	}
	c.value = value
	if err := c.store.Save(value); err != nil {
		return true, fmt.Errorf("failed to persist checkpoint %s=%d: %w", c.kind, value, err)
	}
	return true, nil
}
