package sensor

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Float(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  Value
		want   float64
		wantOK bool
	}{
		{"number", Number(36.5), 36.5, true},
		{"zero", Number(0), 0, true},
		{"negative", Number(-4), -4, true},
		{"text", Text("N/A"), 0, false},
		{"numeric looking text", Text("12"), 0, false},
		{"null", Null(), 0, false},
		{"NaN", Number(math.NaN()), 0, false},
		{"+Inf", Number(math.Inf(1)), 0, false},
		{"zero value", Value{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.value.Float()
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestValue_JSON(t *testing.T) {
	t.Parallel()

	var values []Value
	require.NoError(t, json.Unmarshal([]byte(`[21.5, "N/A", null, 3]`), &values))
	require.Len(t, values, 4)

	f, ok := values[0].Float()
	assert.True(t, ok)
	assert.InDelta(t, 21.5, f, 0)
	assert.Equal(t, "N/A", values[1].String())
	assert.False(t, values[1].IsNumber())
	_, ok = values[2].Float()
	assert.False(t, ok)

	out, err := json.Marshal(append(values, Number(math.NaN())))
	require.NoError(t, err)
	assert.JSONEq(t, `[21.5, "N/A", null, 3, null]`, string(out))
}

func TestNormalizeValues(t *testing.T) {
	t.Parallel()

	got := NormalizeValues([]any{int32(7), uint8(2), float32(1.5), json.Number("4.25"), "dry", true, nil})
	require.Len(t, got, 7)

	for i, want := range []float64{7, 2, 1.5, 4.25} {
		f, ok := got[i].Float()
		require.True(t, ok, "index %d", i)
		assert.InDelta(t, want, f, 1e-6)
	}
	assert.Equal(t, "dry", got[4].String())
	assert.Equal(t, "true", got[5].String())
	assert.Equal(t, "null", got[6].String())
}
