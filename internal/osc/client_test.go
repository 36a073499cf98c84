package osc

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/oscbridge/internal/testutil"
)

func TestParseValueType(t *testing.T) {
	tests := []struct {
		in      string
		want    ValueType
		wantErr bool
	}{
		{"", Float32, false},
		{"float32", Float32, false},
		{" F ", Float32, false},
		{"float64", Float64, false},
		{"d", Float64, false},
		{"int32", "", true},
	}
	for _, tt := range tests {
		got, err := ParseValueType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseValueType(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseValueType(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseValueType(%q)", tt.in)
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("", 4559, Float32)
	assert.Error(t, err)

	_, err = NewClient("127.0.0.1", 0, Float32)
	assert.Error(t, err)

	_, err = NewClient("127.0.0.1", 70000, Float32)
	assert.Error(t, err)

	_, err = NewClient("127.0.0.1", 4559, ValueType("blob"))
	assert.Error(t, err)

	c, err := NewClient("127.0.0.1", 4559, "")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4559", c.Addr())
	assert.Equal(t, Float32, c.ValueType())
}

func TestClient_SendFloat32(t *testing.T) {
	listener := testutil.NewOSCListener(t)

	c, err := NewClient(listener.Host, listener.Port, Float32)
	require.NoError(t, err)

	require.NoError(t, c.Send("/accel", 1.23))
	require.NoError(t, c.Send("/gyroZ", -0.5))

	msg := listener.Next(t, time.Second)
	assert.Equal(t, "/accel", msg.Address)
	require.Len(t, msg.Arguments, 1)
	assert.Equal(t, float32(1.23), msg.Arguments[0])

	msg = listener.Next(t, time.Second)
	assert.Equal(t, "/gyroZ", msg.Address)
	require.Len(t, msg.Arguments, 1)
	assert.Equal(t, float32(-0.5), msg.Arguments[0])
}

func TestClient_SendFloat64(t *testing.T) {
	listener := testutil.NewOSCListener(t)

	c, err := NewClient(listener.Host, listener.Port, Float64)
	require.NoError(t, err)

	require.NoError(t, c.Send("/accel", 1.23))

	msg := listener.Next(t, time.Second)
	assert.Equal(t, "/accel", msg.Address)
	require.Len(t, msg.Arguments, 1)
	assert.Equal(t, 1.23, msg.Arguments[0])

	listener.ExpectNone(t, 50*time.Millisecond)
}

func TestClient_SendIPv6(t *testing.T) {
	listener := testutil.NewOSCListener6(t)

	for _, host := range []string{"::1", "[::1]"} {
		c, err := NewClient(host, listener.Port, Float32)
		require.NoError(t, err, "host %s", host)
		assert.Equal(t, net.JoinHostPort("::1", strconv.Itoa(listener.Port)), c.Addr())

		require.NoError(t, c.Send("/accel", 0.75), "host %s", host)

		msg := listener.Next(t, time.Second)
		assert.Equal(t, "/accel", msg.Address)
		assert.Equal(t, []any{float32(0.75)}, msg.Arguments)
	}
}
