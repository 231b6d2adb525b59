package util

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
)

var etherInWei = new(big.Rat).SetInt(big.NewInt(params.Ether))

// StringToUint64 parses a base-10 marker value such as a checkpoint file's content.
func StringToUint64(str string) (uint64, error) {
	return strconv.ParseUint(str, 10, 64)
}

func Uint64ToString(u uint64) string {
	return strconv.FormatUint(u, 10)
}

// WeiToEther converts a wei amount into ether as a float, the unit the proof market prices
// orders in.
func WeiToEther(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Rat).Quo(new(big.Rat).SetInt(wei), etherInWei).Float64()
	return f
}

// EtherToWei converts an ether amount back into wei. Amounts with more than 18 decimals or
// negative amounts are rejected.
func EtherToWei(ether float64) (*big.Int, error) {
	s := strconv.FormatFloat(ether, 'f', -1, 64)
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %s", s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative ether amount %s", s)
	}
	r.Mul(r, etherInWei)
	if !r.IsInt() {
		return nil, fmt.Errorf("ether amount %s has more than 18 decimals", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// DecodeProof turns a proof as served by the proof market into the bytes passed to the
// contract: 0x-prefixed strings are hex decoded, anything else is taken as raw bytes.
func DecodeProof(proof string) ([]byte, error) {
	if strings.HasPrefix(proof, "0x") || strings.HasPrefix(proof, "0X") {
		return hexutil.Decode("0x" + proof[2:])
	}
	return []byte(proof), nil
}
