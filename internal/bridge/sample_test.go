package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSample(t *testing.T) {
	s, err := DecodeSample(`{"am": 0.98, "gz": -12.5, "id": "imu-1"}`)
	require.NoError(t, err)
	assert.Len(t, s, 3)

	for _, line := range []string{"null", "[]", `"x"`, "42", "true", " [1, 2] "} {
		_, err := DecodeSample(line)
		assert.ErrorIs(t, err, ErrNotObject, "line %s", line)
	}

	for _, line := range []string{"", "{", `{"am": }`, "{'am': 1}", `{"am": 1} {"gz": 2}`, `{"am": 1} x`} {
		_, err := DecodeSample(line)
		assert.Error(t, err, "line %q", line)
		assert.NotErrorIs(t, err, ErrNotObject, "line %q", line)
	}
}

// TestDecodeSample_OutOfRangeNumber checks that a number too large for
// float64 does not reject the line; only that field becomes unusable.
func TestDecodeSample_OutOfRangeNumber(t *testing.T) {
	s, err := DecodeSample(`{"am": 1.0, "gz": 2.0, "ax": 1e400, "ay": -1e400}`)
	require.NoError(t, err)

	v, err := s.Float("am")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	for _, field := range []string{"ax", "ay"} {
		_, err = s.Float(field)
		assert.ErrorIs(t, err, ErrFieldNotNumeric, "field %s", field)
	}
}

func TestSample_Float(t *testing.T) {
	s, err := DecodeSample(`{"am": 0.98, "n": 3, "neg": -1.5e-3, "str": "1.0", "b": false, "nil": null, "obj": {}}`)
	require.NoError(t, err)

	v, err := s.Float("am")
	require.NoError(t, err)
	assert.Equal(t, 0.98, v)

	v, err = s.Float("n")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = s.Float("neg")
	require.NoError(t, err)
	assert.Equal(t, -0.0015, v)

	_, err = s.Float("gz")
	assert.ErrorIs(t, err, ErrFieldMissing)

	for _, field := range []string{"str", "b", "nil", "obj"} {
		_, err = s.Float(field)
		assert.ErrorIs(t, err, ErrFieldNotNumeric, "field %s", field)
	}
}
