package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/topwebdesignco/advanced-schema-manager/internal/apperr"
)

func TestNonce_RoundTrip(t *testing.T) {
	n := NewNonces("secret", time.Hour)
	tok, exp, err := n.Issue(DeleteAction(7))
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry in the past: %v", exp)
	}
	if err := n.Verify(tok, "delete_schema_7"); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestNonce_WrongAction(t *testing.T) {
	n := NewNonces("secret", time.Hour)
	tok, _, _ := n.Issue(DeleteAction(7))
	for _, action := range []string{DeleteAction(8), EditAction(7), ActionAdd} {
		if err := n.Verify(tok, action); !errors.Is(err, apperr.ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", action, err)
		}
	}
}

func TestNonce_Expired(t *testing.T) {
	n := NewNonces("secret", time.Minute)
	base := time.Now()
	n.now = func() time.Time { return base }
	tok, _, _ := n.Issue(ActionAdd)

	n.now = func() time.Time { return base.Add(2 * time.Minute) }
	if err := n.Verify(tok, ActionAdd); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestNonce_ForeignSecret(t *testing.T) {
	tok, _, _ := NewNonces("other", time.Hour).Issue(ActionAdd)
	if err := NewNonces("secret", time.Hour).Verify(tok, ActionAdd); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNonce_RejectsNoneAlgorithm(t *testing.T) {
	claims := nonceClaims{Action: ActionAdd, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewNonces("secret", time.Hour).Verify(tok, ActionAdd); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNonce_Empty(t *testing.T) {
	n := NewNonces("secret", 0)
	if n.ttl != DefaultNonceTTL {
		t.Errorf("ttl = %v", n.ttl)
	}
	if err := n.Verify("", ActionAdd); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("got %v", err)
	}
	if _, _, err := n.Issue(""); err == nil {
		t.Error("issued a token for an empty action")
	}
}

func TestNonce_UniqueIDs(t *testing.T) {
	n := NewNonces("secret", time.Hour)
	a, _, _ := n.Issue(ActionAdd)
	b, _, _ := n.Issue(ActionAdd)
	if a == b {
		t.Error("two tokens for the same action are identical")
	}
	if strings.Count(a, ".") != 2 {
		t.Errorf("not a compact JWT: %q", a)
	}
}

func TestAuthorizer(t *testing.T) {
	deny := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusUnauthorized) }
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	cases := []struct {
		name   string
		mode   string
		header string
		want   int
	}{
		{"disabled", ModeDisabled, "", http.StatusOK},
		{"token valid", ModeToken, "Bearer s3cret", http.StatusOK},
		{"token missing", ModeToken, "", http.StatusUnauthorized},
		{"token wrong", ModeToken, "Bearer nope", http.StatusUnauthorized},
		{"not bearer", ModeToken, "Basic s3cret", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAuthorizer(tc.mode, "s3cret")
			req := httptest.NewRequest(http.MethodGet, "/api/schemas", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			a.Require(CapEditContent, deny)(ok).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestAuthorizer_UnknownCapability(t *testing.T) {
	a := NewAuthorizer(ModeToken, "s3cret")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	if a.Can(req, "manage_options") {
		t.Error("token granted an unrelated capability")
	}
}
