package sql

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRow_KeepsColumnOrder(t *testing.T) {
	b, err := EncodeRow([]string{"z", "a", "m"}, Row{IntValue(1), StringValue("x"), NullValue()})
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"x","m":null}`, string(b))
}

func TestDecodeRow_UsesSchemaTypes(t *testing.T) {
	cols := []Column{
		{Name: "id", Type: TypeInt, Primary: true},
		{Name: "score", Type: TypeFloat},
		{Name: "name", Type: TypeString},
		{Name: "ok", Type: TypeBool},
	}

	row, err := DecodeRow(cols, json.RawMessage(`{"name":"a","ok":true,"score":3,"id":9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, Row{IntValue(9007199254740993), FloatValue(3), StringValue("a"), BoolValue(true)}, row)
}

func TestDecodeRow_Rejects(t *testing.T) {
	cols := []Column{{Name: "id", Type: TypeInt}}

	_, err := DecodeRow(cols, json.RawMessage(`{"id":1.5}`))
	assert.Error(t, err)

	_, err = DecodeRow(cols, json.RawMessage(`{"id":1,"extra":2}`))
	assert.Error(t, err)

	_, err = DecodeRow(cols, json.RawMessage(`{"other":1}`))
	assert.Error(t, err)

	_, err = DecodeRow(cols, json.RawMessage(`[1]`))
	assert.Error(t, err)
}
