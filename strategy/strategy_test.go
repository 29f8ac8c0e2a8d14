package strategy

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T, remoteAddr string, headers map[string]string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("GET", "/api/test", nil)
	req.RemoteAddr = remoteAddr
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	c.Request = req
	return c
}

func TestNewByAddress(t *testing.T) {
	s, err := New("by_address", "")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "by_address", s.Name())
}

func TestNewIsCaseInsensitive(t *testing.T) {
	s, err := New("BY_HEADER", "")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "by_header", s.Name())
}

func TestNewEmptyPolicyDisables(t *testing.T) {
	s, err := New("", "")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewUnsupportedPolicy(t *testing.T) {
	s, err := New("by_moon_phase", "")
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "Unsupported key strategy")
	assert.Contains(t, err.Error(), "by_moon_phase")
}

func TestAddressStrategyKey(t *testing.T) {
	s, err := New("by_address", "")
	require.NoError(t, err)

	c := testContext(t, "127.0.0.1:51234", nil)
	assert.Equal(t, "ip:127.0.0.1:/api/test", s.Key(c, "/api/test"))
}

func TestAddressStrategyDistinctClients(t *testing.T) {
	s, err := New("by_address", "")
	require.NoError(t, err)

	a := s.Key(testContext(t, "10.0.0.1:1000", nil), "/api/test")
	b := s.Key(testContext(t, "10.0.0.2:1000", nil), "/api/test")
	assert.NotEqual(t, a, b)
}

func TestHeaderStrategyKey(t *testing.T) {
	s, err := New("by_header", "X-API-Key")
	require.NoError(t, err)

	c := testContext(t, "127.0.0.1:51234", map[string]string{"X-API-Key": "abc123"})
	assert.Equal(t, "header:X-API-Key:abc123:/api/test", s.Key(c, "/api/test"))
}

func TestHeaderStrategyDefaultHeader(t *testing.T) {
	s, err := New("by_header", "")
	require.NoError(t, err)

	c := testContext(t, "127.0.0.1:51234", map[string]string{"X-Client-ID": "client-7"})
	assert.Equal(t, "header:X-Client-ID:client-7:/api/test", s.Key(c, "/api/test"))
}

func TestHeaderStrategyMissingHeader(t *testing.T) {
	s, err := New("by_header", "X-API-Key")
	require.NoError(t, err)

	c := testContext(t, "127.0.0.1:51234", nil)
	assert.Equal(t, "header:X-API-Key:unknown:/api/test", s.Key(c, "/api/test"))
}
