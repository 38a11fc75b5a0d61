package serve

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_EditUnmarshal(t *testing.T) {
	input := `{"type":"edit","payload":{"id":"d1","start":3,"end":5,"text":"xy"}}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(input), &req))
	assert.Equal(t, TypeEdit, req.Type)

	payload, err := decode[EditPayload](req.Payload)
	require.NoError(t, err)
	assert.Equal(t, EditPayload{ID: "d1", Start: 3, End: 5, Text: "xy"}, payload)
}

func TestRangePayload_Optional(t *testing.T) {
	p, err := decode[RangePayload](json.RawMessage(`{"id":"d"}`))
	require.NoError(t, err)
	assert.Nil(t, p.Start)
	assert.Nil(t, p.End)

	p, err = decode[RangePayload](json.RawMessage(`{"id":"d","start":0,"end":4}`))
	require.NoError(t, err)
	require.NotNil(t, p.Start)
	assert.Equal(t, 0, *p.Start)
	assert.Equal(t, 4, *p.End)

	_, err = decode[RangePayload](nil)
	assert.NoError(t, err, "missing payload decodes to the zero value")
}

func TestResponse_Marshal(t *testing.T) {
	data, err := json.Marshal(Response{Success: true, Type: "ready"})
	require.NoError(t, err)

	assert.Contains(t, string(data), `"success":true`)
	assert.Contains(t, string(data), `"type":"ready"`)
	assert.NotContains(t, string(data), `"error"`)
}
