package statement

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/bnb-chain/proof-relayer/codec"
)

// WrapRule describes how the decoded public inputs are packaged into an order's input field.
type WrapRule string

const (
	// WrapDecoded uses the tree decoded against the template shape as the input.
	WrapDecoded WrapRule = "decoded"
	// WrapArray produces [{"array": ["<v0>", "<v1>", ...]}].
	WrapArray WrapRule = "array"
	// WrapFields produces [{"field": "<v0>"}, {"field": "<v1>"}].
	WrapFields WrapRule = "fields"
)

const fieldCount = 2

var ErrNoPublicInputs = errors.New("order carries no public inputs")

func (r WrapRule) Valid() bool {
	switch r {
	case WrapDecoded, WrapArray, WrapFields:
		return true
	}
	return false
}

// Template is the immutable registry entry of one statement.
type Template struct {
	Key   string
	Name  string
	Shape interface{} // nil unless Wrap is WrapDecoded
	Wrap  WrapRule
}

// BuildInput turns the on-chain public inputs of an order into the proof market input. Only
// the first row of publicInputs is used.
func (t *Template) BuildInput(publicInputs [][]*big.Int) (interface{}, error) {
	if len(publicInputs) == 0 {
		return nil, fmt.Errorf("statement %s: %w", t.Key, ErrNoPublicInputs)
	}
	values := publicInputs[0]
	switch t.Wrap {
	case WrapDecoded:
		decoded, err := codec.Decode(t.Shape, values)
		if err != nil {
			return nil, fmt.Errorf("failed to decode public inputs of statement %s: %w", t.Key, err)
		}
		return decoded, nil
	case WrapArray:
		items := make([]interface{}, 0, len(values))
		for _, v := range values {
			items = append(items, v.String())
		}
		return []interface{}{codec.Object{{Key: "array", Value: items}}}, nil
	case WrapFields:
		if len(values) < fieldCount {
			return nil, fmt.Errorf("statement %s needs %d public inputs, got %d: %w",
				t.Key, fieldCount, len(values), codec.ErrInsufficientValues)
		}
		fields := make([]interface{}, 0, fieldCount)
		for _, v := range values[:fieldCount] {
			fields = append(fields, codec.Object{{Key: "field", Value: v.String()}})
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("unsupported wrap rule %q for statement %s", t.Wrap, t.Key)
	}
}
