package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoute(t *testing.T) {
	r, err := ParseRoute("am=/accel")
	require.NoError(t, err)
	assert.Equal(t, Route{Field: "am", Path: "/accel"}, r)

	r, err = ParseRoute(" gz = /gyro/z ")
	require.NoError(t, err)
	assert.Equal(t, Route{Field: "gz", Path: "/gyro/z"}, r)
	assert.Equal(t, "gz=/gyro/z", r.String())

	for _, bad := range []string{"am", "=/accel", "am=", "am=accel", "am=/acc el", "am=/acc*", "am=/{a,b}"} {
		_, err := ParseRoute(bad)
		assert.Error(t, err, "ParseRoute(%q)", bad)
	}
}

func TestValidateRoutes(t *testing.T) {
	assert.NoError(t, ValidateRoutes(DefaultRoutes()))
	assert.Error(t, ValidateRoutes(nil))
	assert.Error(t, ValidateRoutes([]Route{{Field: "am", Path: "/accel"}, {Field: "am", Path: "/accel"}}))
	assert.NoError(t, ValidateRoutes([]Route{{Field: "am", Path: "/accel"}, {Field: "am", Path: "/volume"}}))
	assert.Error(t, ValidateRoutes([]Route{{Field: "", Path: "/accel"}}))
}
