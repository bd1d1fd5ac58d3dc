package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tracePayload struct {
	Kind  string         `json:"kind"`
	Trace []float64      `json:"trace"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json", "go-json-indent"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}

	c, ok := ByName("")
	require.True(t, ok)
	assert.Equal(t, Default.Name(), c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecs_AreInterchangeable(t *testing.T) {
	in := tracePayload{Kind: "predict", Trace: []float64{0.1, 1e-3, 2.5e-7}, Attrs: map[string]any{"bits": 3.0}}

	var out tracePayload
	require.NoError(t, JSON{}.Unmarshal(MustMarshal(GoJSON{}, in), &out))
	assert.Equal(t, in, out)

	out = tracePayload{}
	require.NoError(t, GoJSON{}.Unmarshal(MustMarshal(JSON{}, in), &out))
	assert.Equal(t, in, out)
}

func TestGoJSON_Indent(t *testing.T) {
	in := tracePayload{Kind: "reconstruct", Trace: []float64{0.5}}
	pretty := MustMarshal(GoJSON{Indent: "  "}, in)
	assert.Contains(t, string(pretty), "\n  \"kind\"")

	var out tracePayload
	require.NoError(t, JSON{}.Unmarshal(pretty, &out))
	assert.Equal(t, in, out)
}

func TestCodecs_RejectNonFinite(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}, GoJSON{Indent: "\t"}} {
		_, err := c.Marshal(tracePayload{Trace: []float64{math.NaN()}})
		assert.Error(t, err, c.Name())
		assert.Panics(t, func() { MustMarshal(c, math.Inf(1)) }, c.Name())
	}
}

func BenchmarkCodec_Marshal_Trace(b *testing.B) {
	trace := make([]float64, 100)
	for i := range trace {
		trace[i] = math.Pow(0.9, float64(i))
	}
	payload := tracePayload{Kind: "reconstruct", Trace: trace}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		b.Run(c.Name(), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := c.Marshal(payload); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
