package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mahaj/teamsync/pkg/mocks"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const secret = "a_test_secret_long_enough_for_hs256"

func TestVerifier_Issue_And_Validate(t *testing.T) {
	req := require.New(t)
	v := NewVerifier(secret, "teamsync")

	token, err := v.Issue("alice", time.Hour)
	req.NoError(err)

	claims, err := v.Validate(token)
	req.NoError(err)
	req.Equal("alice", claims.UserID)
	req.Equal("teamsync", claims.Issuer)
}

func TestVerifier_Validate_Failures(t *testing.T) {
	v := NewVerifier(secret, "teamsync")
	expired, err := v.Issue("alice", -time.Minute)
	require.NoError(t, err)
	foreign, err := NewVerifier("another_secret_entirely_different", "teamsync").Issue("alice", time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := NewVerifier(secret, "someone-else").Issue("alice", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "", ErrMissingToken},
		{"garbage", "not.a.jwt", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"bad signature", foreign, ErrInvalidToken},
		{"wrong issuer", wrongIssuer, ErrInvalidToken},
		{"unsigned", none, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			claims, err := v.Validate(tt.token)
			req.ErrorIs(err, tt.want)
			req.Nil(claims)
		})
	}
}

func TestGate_Authenticate(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserLookup(ctrl)
	v := NewVerifier(secret, "")
	gate := NewGate(v, users, slog.Default())
	alice := model.Principal{ID: "alice", Name: "Alice", Role: model.RoleStudent}

	t.Run("should resolve the principal of a valid token", func(t *testing.T) {
		req := require.New(t)
		token, err := v.Issue("alice", time.Hour)
		req.NoError(err)
		users.EXPECT().FindUser(gomock.Any(), "alice").Return(alice, nil).Times(1)

		principal, err := gate.Authenticate(context.Background(), token)

		req.NoError(err)
		req.Equal(alice, principal)
	})

	t.Run("should fail closed when the subject is unknown", func(t *testing.T) {
		req := require.New(t)
		token, err := v.Issue("ghost", time.Hour)
		req.NoError(err)
		users.EXPECT().FindUser(gomock.Any(), "ghost").Return(model.Principal{}, context.DeadlineExceeded).Times(1)

		principal, err := gate.Authenticate(context.Background(), token)

		req.ErrorIs(err, ErrUnknownSubject)
		req.Empty(principal)
	})

	t.Run("should never look up users for a bad token", func(t *testing.T) {
		req := require.New(t)
		users.EXPECT().FindUser(gomock.Any(), gomock.Any()).Times(0)

		_, err := gate.Authenticate(context.Background(), "bogus")

		req.ErrorIs(err, ErrInvalidToken)
	})
}

func TestGate_Middleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserLookup(ctrl)
	v := NewVerifier(secret, "")
	gate := NewGate(v, users, slog.Default())
	alice := model.Principal{ID: "alice", Name: "Alice"}

	var seen model.Principal
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("rejects requests without credentials", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teams/T1/messages", nil))
		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts a bearer header", func(t *testing.T) {
		req := require.New(t)
		token, err := v.Issue("alice", time.Hour)
		req.NoError(err)
		users.EXPECT().FindUser(gomock.Any(), "alice").Return(alice, nil)

		r := httptest.NewRequest(http.MethodGet, "/teams/T1/messages", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)

		req.Equal(http.StatusNoContent, rec.Code)
		req.Equal(alice, seen)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"bearer header", "Bearer abc.def.ghi", "", "abc.def.ghi"},
		{"lowercase scheme", "bearer abc", "", "abc"},
		{"raw header", "abc", "", "abc"},
		{"query fallback", "", "token=xyz", "xyz"},
		{"header wins", "Bearer abc", "token=xyz", "abc"},
		{"nothing", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws?"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			require.Equal(t, tt.want, BearerToken(r))
		})
	}
}
