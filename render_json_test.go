package pydec_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	pydec "github.com/doyensec/r2pickledec"
	"github.com/doyensec/r2pickledec/asmpickle"
)

// TestRenderJSONSelfReferentialList checks that a self-referential list
// (the same byte sequence as the pseudocode renderer's "self-referential
// list" scenario) comes back as a ref node rather than an infinite tree.
func TestRenderJSONSelfReferentialList(t *testing.T) {
	state, err := run(t, []byte("]\x94h\x00a."))
	require.NoError(t, err)

	out, err := pydec.RenderJSON(state)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))

	stack, ok := doc["stack"].([]interface{})
	require.True(t, ok)
	require.Len(t, stack, 1)

	root, ok := stack[0].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "LIST", root["type"])
	require.Contains(t, root, "id")

	value, ok := root["value"].([]interface{})
	require.True(t, ok)
	require.Len(t, value, 1)

	self, ok := value[0].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, self, "ref")
	require.Equal(t, root["id"], self["ref"])
}

func TestRenderJSONFlatTuple(t *testing.T) {
	asm := asmpickle.New([]byte("K\x01K\x02K\x03\x87."))
	vm, err := pydec.NewInterpreter(asm, pydec.DefaultConfig(), pydec.WithHostIO(asm))
	require.NoError(t, err)
	require.NoError(t, vm.Run())

	out, err := pydec.RenderJSON(vm.State())
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	stack := doc["stack"].([]interface{})
	require.Len(t, stack, 1)
	root := stack[0].(map[string]interface{})
	require.Equal(t, "TUPLE", root["type"])
	value := root["value"].([]interface{})
	require.Len(t, value, 3)
	for i, want := range []float64{1, 2, 3} {
		item := value[i].(map[string]interface{})
		require.Equal(t, "INT", item["type"])
		require.InDelta(t, want, item["value"], 0)
	}
}
