package gamedata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloatJSON(t *testing.T) {
	encoded, err := json.Marshal(map[string]Float{"a": 1.5, "b": NaN()})
	require.NoError(t, err)
	require.JSONEq(t, `{"a": 1.5, "b": null}`, string(encoded))

	var decoded struct {
		A Float `json:"a"`
		B Float `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 2.5, "b": null}`), &decoded))
	require.EqualValues(t, 2.5, decoded.A)
	require.True(t, decoded.B.IsNaN())
}
