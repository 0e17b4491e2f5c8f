package result

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstructorsSetExpectedStatus(t *testing.T) {
	require := require.New(t)

	require.Equal(200, OK("ok", nil).Status)
	require.Equal(400, BadRequest("bad", nil).Status)
	require.Equal(404, NotFound("missing", nil).Status)
	require.Equal(409, Conflict("exists", nil).Status)
	require.Equal(500, Internal("boom", nil).Status)
	require.Equal(503, Unavailable("retry", nil).Status)
}

func TestConstructorsCarryMessageAndData(t *testing.T) {
	require := require.New(t)

	res := OK("created", map[string]string{"name": "orders"})
	require.Equal("created", res.Message)
	require.Equal(map[string]string{"name": "orders"}, res.Data)
}
