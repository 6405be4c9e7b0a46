package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	tests := []struct {
		name string
		in   Principal
	}{
		{name: "retailer", in: Principal{Role: RoleRetailer, RetailerID: 42, Phone: "+919876543210"}},
		{name: "customer", in: Principal{Role: RoleCustomer, Phone: "+919876543210"}},
		{name: "admin", in: Principal{Role: RoleAdmin, Username: "root"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expires, err := issuer.Issue(tt.in)
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

			got, err := issuer.Parse(token)
			require.NoError(t, err)
			assert.Equal(t, tt.in, *got)
		})
	}
}

func TestTokenIssuer_RejectsExpiredAndForeign(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	token, _, err := issuer.Issue(Principal{Role: RoleCustomer, Phone: "+911234567890"})
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer("other-secret", time.Minute)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthMiddleware_WithValidToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	m := NewAuthMiddleware(issuer)

	token, _, err := issuer.Issue(Principal{Role: RoleRetailer, RetailerID: 42})
	require.NoError(t, err)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok, "principal not in context")
		assert.Equal(t, int64(42), p.RetailerID)
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	m.Require(RoleRetailer)(next).ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, nextCalled, "next handler was not called")
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	m := NewAuthMiddleware(issuer)

	customerToken, _, err := issuer.Issue(Principal{Role: RoleCustomer, Phone: "+911234567890"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "no header", header: "", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc.def.ghi", want: http.StatusUnauthorized},
		{name: "wrong role", header: "Bearer " + customerToken, want: http.StatusForbidden},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			m.Require(RoleRetailer, RoleAdmin)(next).ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}
