package dispatch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/dirserve/internal/config"
)

func markingHandler(mark string) ContentHandlerFunc {
	return func(rs *ResponseState, req *http.Request, resolvedPath string) error {
		rs.Header().Set("X-Handler", mark)
		rs.WriteHeader(http.StatusOK)
		_, err := rs.Write([]byte(mark + ": " + resolvedPath))
		return err
	}
}

func TestTypeHandlerRegistry_Register(t *testing.T) {
	r := NewTypeHandlerRegistry()

	require.NoError(t, r.Register(".md", markingHandler("md")))
	require.NoError(t, r.Register("TXT", markingHandler("txt")))

	assert.Error(t, r.Register("md", markingHandler("dup")), "duplicate registration")
	assert.Error(t, r.Register("", markingHandler("x")), "empty extension")
	assert.Error(t, r.Register("json", nil), "nil handler")

	_, ok := r.Get("md")
	assert.True(t, ok)
	_, ok = r.Get(".TXT")
	assert.True(t, ok, "lookup is case-insensitive and dot-insensitive")
	_, ok = r.Get("json")
	assert.False(t, ok)
}

func TestTypeHandlerRegistry_Handle(t *testing.T) {
	r := NewTypeHandlerRegistry()
	require.NoError(t, r.Register("md", markingHandler("md")))

	req := httptest.NewRequest(http.MethodGet, "/notes.md", nil)
	rec := httptest.NewRecorder()
	rs := NewResponseState(rec)

	require.NoError(t, r.Handle(rs, req, "/srv/www/notes.md"))
	assert.True(t, rs.Written())
	assert.Equal(t, "md", rec.Header().Get("X-Handler"))
	assert.Equal(t, "md: /srv/www/notes.md", rec.Body.String())
}

func TestTypeHandlerRegistry_UnregisteredIsNoOp(t *testing.T) {
	r := NewTypeHandlerRegistry()
	require.NoError(t, r.Register("md", markingHandler("md")))

	for _, p := range []string{"/srv/www/a.txt", "/srv/www/noext", "/srv/www/dir"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rs := NewResponseState(httptest.NewRecorder())
		require.NoError(t, r.Handle(rs, req, p))
		assert.False(t, rs.Written(), "path %s should pass through", p)
	}
}

func TestTypeHandlerRegistry_AsDispatchHandler(t *testing.T) {
	fs := newTestFS(t, "notes.md", "plain.txt")
	reg := NewTypeHandlerRegistry()
	require.NoError(t, reg.Register("md", markingHandler("md")))
	d, _ := newTestDispatcher(t, &config.ServeConfig{}, fs, reg)

	outcome, err, rec := doDispatch(t, d, http.MethodGet, "/notes.md")
	require.NoError(t, err)
	assert.Equal(t, OutcomeHandlerServed, outcome)
	assert.Equal(t, "md", rec.Header().Get("X-Handler"))

	outcome, err, rec = doDispatch(t, d, http.MethodGet, "/plain.txt")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFileServed, outcome)
	assert.Empty(t, rec.Header().Get("X-Handler"))
	assert.Equal(t, "content of plain.txt", rec.Body.String())
}
