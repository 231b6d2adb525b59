package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/pflag"

	"github.com/bnb-chain/proof-relayer/codec"
)

const (
	cmdFromJson = "from_json"
	cmdFromUint = "from_uint"

	indent = "    "
)

func printUsage() {
	fmt.Printf("usage: ./codec %s --input public_input.json --output public_input_uint.json\n", cmdFromJson)
	fmt.Printf("usage: ./codec %s --input public_input_uint.json --output public_input.json --example example.json\n", cmdFromUint)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	fs := pflag.NewFlagSet(cmd, pflag.ExitOnError)
	input := fs.StringP("input", "i", "", "input file path")
	output := fs.StringP("output", "o", "", "output file path")
	example := fs.StringP("example", "e", "", "example JSON public input driving the decode")
	if err := fs.Parse(os.Args[2:]); err != nil {
		panic(err)
	}
	if *input == "" || *output == "" {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch cmd {
	case cmdFromJson:
		err = convertToArray(*input, *output)
	case cmdFromUint:
		if *example == "" {
			printUsage()
			os.Exit(1)
		}
		err = convertToJson(*input, *output, *example)
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed, err=%s\n", cmd, err.Error())
		os.Exit(1)
	}
}

// convertToArray encodes a JSON public input into its flat uint256 form. Values are written
// as plain JSON numbers without precision loss.
func convertToArray(inputPath, outputPath string) error {
	bz, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	tree, err := codec.ParseJSON(bz)
	if err != nil {
		return err
	}
	values, err := codec.Encode(tree)
	if err != nil {
		return err
	}
	numbers := make([]json.Number, 0, len(values))
	for _, v := range values {
		numbers = append(numbers, json.Number(v.String()))
	}
	out, err := json.MarshalIndent(numbers, "", indent)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, out, 0o644)
}

// convertToJson decodes a flat uint256 array back into the shape of the example.
func convertToJson(inputPath, outputPath, examplePath string) error {
	bz, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	values, err := parseUintArray(bz)
	if err != nil {
		return err
	}
	exampleBz, err := os.ReadFile(examplePath)
	if err != nil {
		return err
	}
	example, err := codec.ParseJSON(exampleBz)
	if err != nil {
		return err
	}
	decoded, err := codec.Decode(example, values)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(decoded, "", indent)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, out, 0o644)
}

// parseUintArray accepts numbers as JSON numbers or decimal strings.
func parseUintArray(bz []byte) ([]*big.Int, error) {
	dec := json.NewDecoder(bytes.NewReader(bz))
	dec.UseNumber()
	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	values := make([]*big.Int, 0, len(raw))
	for i, item := range raw {
		var s string
		switch v := item.(type) {
		case json.Number:
			s = v.String()
		case string:
			s = v
		default:
			return nil, fmt.Errorf("element %d is not an integer: %v", i, item)
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("element %d is not an integer: %s", i, s)
		}
		values = append(values, n)
	}
	return values, nil
}
