package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicAuth(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter,
		_ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		require.NoError(t, err)
	})
	fakeAuthHeader := "Bearer eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6Ikpva"
	fakeAuthToken := AuthToken{
		Token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6Ikpva",
	}
	testCase := []struct {
		name       string
		authHeader string
		authToken  *AuthToken
		httpStatus int
	}{
		{
			name:       "auth header set, auth token set",
			authHeader: fakeAuthHeader,
			authToken:  &fakeAuthToken,
			httpStatus: http.StatusOK,
		},
		{
			name:       "auth header set, auth token unset",
			authHeader: fakeAuthHeader,
			authToken:  nil,
			httpStatus: http.StatusUnauthorized,
		},
		{
			name:       "auth header unset, auth token set",
			authHeader: "",
			authToken:  &fakeAuthToken,
			httpStatus: http.StatusUnauthorized,
		},
		{
			name:       "auth header unset, auth token unset",
			authHeader: "",
			authToken:  nil,
			httpStatus: http.StatusUnauthorized,
		},
	}
	// incorrectCreds triggers HTTP 401 Unauthorized upon basic auth
	incorrectCreds := map[string]string{
		"INCORRECT_USERNAME": "INCORRECT_PASSWORD",
	}
	for _, tc := range testCase {
		t.Run(tc.name, func(t *testing.T) {
			r, err := http.NewRequest("GET", "/test", nil)
			require.NoError(t, err)

			r.Header.Add("Authorization", tc.authHeader)

			w := httptest.NewRecorder()
			authToken = tc.authToken

			BasicAuth("restricted", incorrectCreds)(testHandler).ServeHTTP(w, r)

			res := w.Result()
			defer func() {
				_ = res.Body.Close()
			}()
			require.Equal(t, tc.httpStatus, res.StatusCode)
		})
	}
}

func TestTokenAuth(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter,
		_ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	testCase := []struct {
		name       string
		authHeader string
		httpStatus int
	}{
		{
			name:       "valid bearer token",
			authHeader: "Bearer secret-token",
			httpStatus: http.StatusOK,
		},
		{
			name:       "wrong bearer token",
			authHeader: "Bearer wrong-token",
			httpStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty bearer token",
			authHeader: "Bearer ",
			httpStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing header",
			authHeader: "",
			httpStatus: http.StatusUnauthorized,
		},
	}
	for _, tc := range testCase {
		t.Run(tc.name, func(t *testing.T) {
			r, err := http.NewRequest("GET", "/test", nil)
			require.NoError(t, err)

			if tc.authHeader != "" {
				r.Header.Add("Authorization", tc.authHeader)
			}

			w := httptest.NewRecorder()

			TokenAuth("restricted", "secret-token")(testHandler).ServeHTTP(w, r)

			res := w.Result()
			defer func() {
				_ = res.Body.Close()
			}()
			require.Equal(t, tc.httpStatus, res.StatusCode)
		})
	}
}

func TestAuthChain(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter,
		_ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	Setup(&Options{
		AuthBasic: &AuthBasic{Username: "admin", Password: "pass"},
		AuthToken: &AuthToken{Token: "secret-token"},
	})
	t.Cleanup(func() {
		Setup(&Options{})
	})

	chain := AuthChain()
	require.Len(t, chain, 2)

	handler := http.Handler(testHandler)
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	t.Run("basic credentials pass both layers", func(t *testing.T) {
		r, err := http.NewRequest("GET", "/test", nil)
		require.NoError(t, err)
		r.SetBasicAuth("admin", "pass")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Result().StatusCode)
	})

	t.Run("bearer token skips basic auth", func(t *testing.T) {
		r, err := http.NewRequest("GET", "/test", nil)
		require.NoError(t, err)
		r.Header.Add("Authorization", "Bearer secret-token")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Result().StatusCode)
	})

	t.Run("no credentials rejected", func(t *testing.T) {
		r, err := http.NewRequest("GET", "/test", nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
	})
}
