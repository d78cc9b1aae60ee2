package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubVerifier struct {
	uid string
	err error
}

func (s stubVerifier) VerifyToken(string) (string, error) { return s.uid, s.err }

func authRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireAuth(v), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserIDFrom(c)})
	})
	return r
}

func TestRequireAuth_ValidToken(t *testing.T) {
	r := authRouter(stubVerifier{uid: "u1"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer some.jwt.token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["user_id"] != "u1" {
		t.Fatalf("user_id = %q, want u1", body["user_id"])
	}
}

func TestRequireAuth_SchemeCaseInsensitive(t *testing.T) {
	r := authRouter(stubVerifier{uid: "u1"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer some.jwt.token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	r := authRouter(stubVerifier{uid: "u1"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["code"] != "unauthorized" {
		t.Fatalf("code = %q", body["code"])
	}
}

func TestRequireAuth_WrongScheme(t *testing.T) {
	r := authRouter(stubVerifier{uid: "u1"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuth_VerifierRejects(t *testing.T) {
	r := authRouter(stubVerifier{err: errors.New("bad token")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer expired.jwt.token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER  abc ", "abc"},
		{"Bearer", ""},
		{"Bearer ", ""},
		{"Token abc", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.in); got != tc.want {
			t.Fatalf("bearerToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
