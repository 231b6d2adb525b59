package statement

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bnb-chain/proof-relayer/codec"
)

func writeFile(t *testing.T, dir, name, content string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "state.json", `{"height": "0", "final": false}`)
	path := writeFile(t, dir, "statements.json", `{
		"statements": [
			{"statement_key": "79169223", "name": "mina account", "wrap": "array"},
			{"statement_key": "32292", "name": "mina state", "wrap": "decoded", "template_path": "state.json"},
			{"statement_key": "32326", "name": "unified addition", "wrap": "fields"},
			{"statement_key": "1", "wrap": "decoded", "template": ["0"]}
		]
	}`)

	registry, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Equal(t, 4, registry.Len())

	state, ok := registry.Lookup("32292")
	require.True(t, ok)
	require.Equal(t, WrapDecoded, state.Wrap)
	require.NotNil(t, state.Shape)

	_, ok = registry.Lookup("404")
	require.False(t, ok)
}

func TestLoadRegistryRejectsBadEntries(t *testing.T) {
	for name, content := range map[string]string{
		"unknown wrap":     `{"statements": [{"statement_key": "1", "wrap": "zip"}]}`,
		"missing key":      `{"statements": [{"wrap": "array"}]}`,
		"duplicate":        `{"statements": [{"statement_key": "1", "wrap": "array"}, {"statement_key": "1", "wrap": "fields"}]}`,
		"missing template": `{"statements": [{"statement_key": "1", "wrap": "decoded"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "statements.json", content)
			_, err := LoadRegistry(path)
			require.Error(t, err)
		})
	}
}

func TestBuildInput(t *testing.T) {
	inputs := [][]*big.Int{{big.NewInt(3), big.NewInt(4)}}

	array := &Template{Key: "79169223", Wrap: WrapArray}
	got, err := array.BuildInput(inputs)
	require.NoError(t, err)
	bz, err := json.Marshal(got)
	require.NoError(t, err)
	require.JSONEq(t, `[{"array": ["3", "4"]}]`, string(bz))

	fields := &Template{Key: "32326", Wrap: WrapFields}
	got, err = fields.BuildInput(inputs)
	require.NoError(t, err)
	bz, err = json.Marshal(got)
	require.NoError(t, err)
	require.JSONEq(t, `[{"field": "3"}, {"field": "4"}]`, string(bz))

	decoded := &Template{Key: "1", Wrap: WrapDecoded, Shape: []interface{}{"0", true}}
	got, err = decoded.BuildInput([][]*big.Int{{big.NewInt(1), big.NewInt(9), big.NewInt(0)}})
	require.NoError(t, err)
	require.Equal(t, []interface{}{"-9", false}, got)
}

func TestBuildInputUsesFirstRow(t *testing.T) {
	inputs := [][]*big.Int{{big.NewInt(1), big.NewInt(2), big.NewInt(5)}, {big.NewInt(3)}}

	for _, tc := range []struct {
		tmpl *Template
		want string
	}{
		{&Template{Key: "79169223", Wrap: WrapArray}, `[{"array": ["1", "2", "5"]}]`},
		{&Template{Key: "32326", Wrap: WrapFields}, `[{"field": "1"}, {"field": "2"}]`},
		{&Template{Key: "1", Wrap: WrapDecoded, Shape: []interface{}{"0", true}}, `["2", true]`},
	} {
		t.Run(string(tc.tmpl.Wrap), func(t *testing.T) {
			got, err := tc.tmpl.BuildInput(inputs)
			require.NoError(t, err)
			bz, err := json.Marshal(got)
			require.NoError(t, err)
			require.JSONEq(t, tc.want, string(bz))
		})
	}
}

func TestBuildInputRejectsMissingRows(t *testing.T) {
	for _, wrap := range []WrapRule{WrapArray, WrapFields, WrapDecoded} {
		tmpl := &Template{Key: "1", Wrap: wrap, Shape: []interface{}{"0"}}
		_, err := tmpl.BuildInput(nil)
		require.ErrorIs(t, err, ErrNoPublicInputs)
	}

	fields := &Template{Key: "32326", Wrap: WrapFields}
	_, err := fields.BuildInput([][]*big.Int{{big.NewInt(1)}})
	require.ErrorIs(t, err, codec.ErrInsufficientValues)
}

func TestBuildInputTooFewValues(t *testing.T) {
	decoded := &Template{Key: "1", Wrap: WrapDecoded, Shape: []interface{}{"0", "0"}}
	_, err := decoded.BuildInput([][]*big.Int{{big.NewInt(0)}})
	require.Error(t, err)
}

func TestShippedRegistryRoundTrip(t *testing.T) {
	registry, err := LoadRegistry(filepath.Join("..", "config", "local", "statements.json"))
	require.NoError(t, err)

	state, ok := registry.Lookup("32292")
	require.True(t, ok)
	values, err := codec.Encode(state.Shape)
	require.NoError(t, err)
	require.NotEmpty(t, values)

	got, err := state.BuildInput([][]*big.Int{values})
	require.NoError(t, err)
	want, err := json.Marshal(state.Shape)
	require.NoError(t, err)
	bz, err := json.Marshal(got)
	require.NoError(t, err)
	require.Equal(t, string(want), string(bz))
}
