package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, true},
		{201, true},
		{202, true},
		{204, true},
		{203, false},
		{301, false},
		{400, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		r := NewResponse(tt.status, nil, nil)
		if got := r.IsSuccess(); got != tt.want {
			t.Errorf("IsSuccess() for %d = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestResponse_JSON(t *testing.T) {
	r := NewResponse(200, http.Header{"X-Auth-Token": {"t"}}, []byte(`{"Id":"bmc","Members":[]}`))

	data, err := r.JSON()
	require.NoError(t, err)
	assert.Equal(t, "bmc", data.(map[string]any)["Id"])
	assert.Equal(t, "t", r.Header().Get("X-Auth-Token"))

	var typed struct{ Id string }
	require.NoError(t, r.Decode(&typed))
	assert.Equal(t, "bmc", typed.Id)
}

func TestResponse_JSONDecodeError(t *testing.T) {
	r := NewResponse(500, nil, []byte("<html>Internal Error</html>"))

	_, err := r.JSON()
	assert.True(t, typederrors.IsJSONDecodeError(err))

	// cached
	_, err2 := r.JSON()
	assert.Equal(t, err, err2)
	assert.Equal(t, "<html>Internal Error</html>", string(r.Body()))
}
