// Package codec converts public inputs between the nested JSON form expected by the proof
// market and the flat uint256 sequence stored on chain.
//
// Leaves are classified by shape, in priority order:
//
//	"0x" + 64 lowercase hex chars       -> one value, the uint256 itself
//	base58 string longer than 40 chars  -> one value, big-endian integer mod 2^256
//	canonical base-10 integer string    -> two values, sign flag and magnitude
//	bool                                -> one value, 1 or 0
//	anything else                       -> nothing, copied from the template on decode
//
// A long decimal string made only of the digits 1-9 is also valid base58 and is therefore
// treated as a hash.
//
// Only canonical spellings are classified, so every classified leaf decodes back to the
// same text: uppercase hex, a leading "+", leading zeros and "-0" are passthrough.
//
// Objects must be Object values. Go maps have no key order and are rejected.
package codec

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/mr-tron/base58"
)

type LeafKind int

const (
	Passthrough LeafKind = iota
	HexUint256
	OpaqueHash
	SignedDecimal
	Boolean
)

func (k LeafKind) String() string {
	switch k {
	case HexUint256:
		return "hex_uint256"
	case OpaqueHash:
		return "opaque_hash"
	case SignedDecimal:
		return "signed_decimal"
	case Boolean:
		return "boolean"
	default:
		return "passthrough"
	}
}

const (
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	minHashLength  = 41
	hashByteLength = 32
)

var (
	ErrInsufficientValues = errors.New("not enough values to fill the template")
	ErrValueOutOfRange    = errors.New("value does not fit in 256 bits")
	ErrUnorderedObject    = errors.New("objects must be codec.Object, maps have no key order")

	hexUint256Pattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)
	decimalPattern    = regexp.MustCompile(`^(0|-?[1-9][0-9]*)$`)
)

// Classify returns the kind of a leaf. Objects and arrays are not leaves and classify as
// Passthrough.
func Classify(leaf interface{}) LeafKind {
	switch v := leaf.(type) {
	case bool:
		return Boolean
	case string:
		switch {
		case hexUint256Pattern.MatchString(v):
			return HexUint256
		case isHash(v):
			return OpaqueHash
		case decimalPattern.MatchString(v):
			return SignedDecimal
		}
	}
	return Passthrough
}

func isHash(s string) bool {
	if strings.HasPrefix(s, "0x") || len(s) < minHashLength {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(base58Alphabet, c) {
			return false
		}
	}
	return true
}

// Encode flattens tree depth-first, objects in key order and arrays by index.
func Encode(tree interface{}) ([]*big.Int, error) {
	values := make([]*big.Int, 0)
	if err := encode(tree, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func encode(node interface{}, out *[]*big.Int) error {
	switch v := node.(type) {
	case Object:
		for _, m := range v {
			if err := encode(m.Value, out); err != nil {
				return err
			}
		}
		return nil
	case []interface{}:
		for _, item := range v {
			if err := encode(item, out); err != nil {
				return err
			}
		}
		return nil
	case map[string]interface{}:
		return ErrUnorderedObject
	}

	switch Classify(node) {
	case HexUint256:
		n, _ := new(big.Int).SetString(node.(string)[2:], 16)
		*out = append(*out, n)
	case OpaqueHash:
		bz, err := base58.Decode(node.(string))
		if err != nil {
			return fmt.Errorf("failed to decode base58 leaf %q: %w", node, err)
		}
		*out = append(*out, math.U256(new(big.Int).SetBytes(bz)))
	case SignedDecimal:
		n, _ := new(big.Int).SetString(node.(string), 10)
		sign := big.NewInt(0)
		if n.Sign() < 0 {
			sign = big.NewInt(1)
		}
		*out = append(*out, sign, new(big.Int).Abs(n))
	case Boolean:
		if node.(bool) {
			*out = append(*out, big.NewInt(1))
		} else {
			*out = append(*out, big.NewInt(0))
		}
	}
	return nil
}

// Decode rebuilds a tree shaped like template, consuming values front to back. Leaves the
// template classifies as Passthrough are copied and consume nothing. Values left over once
// the template is exhausted are ignored.
func Decode(template interface{}, values []*big.Int) (interface{}, error) {
	d := &decoder{values: values}
	return d.decode(template)
}

type decoder struct {
	values []*big.Int
	pos    int
}

func (d *decoder) next() (*big.Int, error) {
	if d.pos >= len(d.values) {
		return nil, fmt.Errorf("%w: need value #%d, have %d", ErrInsufficientValues, d.pos+1, len(d.values))
	}
	v := d.values[d.pos]
	d.pos++
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

func (d *decoder) decode(node interface{}) (interface{}, error) {
	switch v := node.(type) {
	case Object:
		out := make(Object, 0, len(v))
		for _, m := range v {
			decoded, err := d.decode(m.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, Member{Key: m.Key, Value: decoded})
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			decoded, err := d.decode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, decoded)
		}
		return out, nil
	case map[string]interface{}:
		return nil, ErrUnorderedObject
	}

	switch Classify(node) {
	case HexUint256:
		n, err := d.next()
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 || n.BitLen() > 256 {
			return nil, fmt.Errorf("%w: %s", ErrValueOutOfRange, n.String())
		}
		return fmt.Sprintf("0x%064x", n), nil
	case OpaqueHash:
		n, err := d.next()
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 || n.BitLen() > 256 {
			return nil, fmt.Errorf("%w: %s", ErrValueOutOfRange, n.String())
		}
		return base58.Encode(math.PaddedBigBytes(n, hashByteLength)), nil
	case SignedDecimal:
		sign, err := d.next()
		if err != nil {
			return nil, err
		}
		magnitude, err := d.next()
		if err != nil {
			return nil, err
		}
		if sign.Cmp(big.NewInt(1)) == 0 {
			return new(big.Int).Neg(magnitude).String(), nil
		}
		return magnitude.String(), nil
	case Boolean:
		n, err := d.next()
		if err != nil {
			return nil, err
		}
		return n.Sign() != 0, nil
	default:
		return node, nil
	}
}
