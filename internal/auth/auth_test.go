package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	t.Parallel()

	j := NewJWT("secret")
	token, err := j.Sign(42)
	require.NoError(t, err)

	uid, err := j.Verify(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, uid)
}

func TestJWTWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewJWT("secret").Sign(42)
	require.NoError(t, err)

	_, err = NewJWT("other").Verify(token)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	require.True(t, ComparePassword(hash, "hunter2hunter2"))
	require.False(t, ComparePassword(hash, "wrong"))
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	j := NewJWT("secret")
	var gotUID uint64
	h := RequireAuth(j)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// missing header
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// bad token
	rr = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// valid token
	token, err := j.Sign(7)
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 7, gotUID)
}
