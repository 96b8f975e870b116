package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	t.Parallel()

	body := []byte(`{"errors":[{"code":"PRODUCT_NAME_TAKEN","messageCode":"errors.product.nameTaken","source":"name"}],"status":"409","timestamp":"2025-01-01T00:00:00Z","traceId":"trace-1","version":"1.0"}`)
	parsed := Parse(body, http.StatusConflict)

	require.Equal(t, http.StatusConflict, parsed.HTTPStatus)
	require.Equal(t, "trace-1", parsed.TraceID)
	require.True(t, parsed.HasCode("PRODUCT_NAME_TAKEN"))
	require.Equal(t, "PRODUCT_NAME_TAKEN", parsed.FirstCode())
	require.Contains(t, parsed.Error(), "PRODUCT_NAME_TAKEN")

	var target *ErrorResponse
	require.True(t, errors.As(error(parsed), &target))
}

func TestParseFallsBackToStatus(t *testing.T) {
	t.Parallel()

	for _, body := range [][]byte{nil, []byte("  "), []byte("<html>bad gateway</html>"), []byte(`{"message":"nope"}`)} {
		parsed := Parse(body, http.StatusBadGateway)
		require.Equal(t, http.StatusBadGateway, parsed.HTTPStatus)
		require.Equal(t, "502", parsed.Status)
		require.Equal(t, "HTTP_502", parsed.FirstCode())
		require.Equal(t, "BAD_GATEWAY", parsed.Errors[0].MessageCode)
	}
}

func TestNilErrorResponse(t *testing.T) {
	t.Parallel()

	var e *ErrorResponse
	require.Equal(t, "", e.Error())
	require.False(t, e.HasCode("X"))
	require.Equal(t, "", e.FirstCode())
}
