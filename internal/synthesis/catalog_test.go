package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.True(t, c.Contains(0))
	assert.True(t, c.Contains(1))
	assert.True(t, c.Contains(21))
	assert.False(t, c.Contains(-1))
	assert.False(t, c.Contains(17)) // gap in the stock voice ids
	assert.False(t, c.Contains(9999))

	s, ok := c.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "ずんだもん", s.Character)
	assert.Equal(t, "ノーマル", s.Style)

	_, ok = c.Lookup(17)
	assert.False(t, ok)
}

func TestSpeakersOrderedByID(t *testing.T) {
	speakers := DefaultCatalog().Speakers()
	require.NotEmpty(t, speakers)

	for i := 1; i < len(speakers); i++ {
		assert.Less(t, speakers[i-1].ID, speakers[i].ID)
	}
	assert.Equal(t, 0, speakers[0].ID)
}

func TestTuningSetAndReset(t *testing.T) {
	tu := NewTuning()

	v, ok := tu.Get(KnobSpeedScale)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	assert.True(t, tu.Set(KnobSpeedScale, 1.3))
	v, _ = tu.Get(KnobSpeedScale)
	assert.Equal(t, 1.3, v)

	assert.False(t, tu.Set("noSuchKnob", 2.0))

	tu.Reset()
	v, _ = tu.Get(KnobSpeedScale)
	assert.Equal(t, 1.0, v)
}

func TestTuningAppliesOnlyKnownQueryKeys(t *testing.T) {
	tu := NewTuning()
	require.True(t, tu.Set(KnobSpeedScale, 1.2))

	query := map[string]interface{}{
		"speedScale":   1.0,
		"outputStereo": false,
		"kana":         "コンニチハ",
	}
	tu.applyToQuery(query)

	assert.Equal(t, 1.2, query["speedScale"])
	assert.Equal(t, true, query["outputStereo"])
	assert.Equal(t, "コンニチハ", query["kana"])

	// Keys the engine did not return are never injected.
	_, ok := query["volumeScale"]
	assert.False(t, ok)
}

func TestTuningSamplingRateIsInteger(t *testing.T) {
	tu := NewTuning()

	query := map[string]interface{}{"outputSamplingRate": 24000.0}
	tu.applyToQuery(query)

	assert.Equal(t, 44100, query["outputSamplingRate"])
}
