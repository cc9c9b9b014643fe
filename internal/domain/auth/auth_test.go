package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/api/idtoken"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	actor := Actor{Email: "jan@uni.edu", Name: "Jan", Roles: []string{RoleDean}}
	token, err := GenerateToken("test-secret", actor, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	claims, err := ParseToken("test-secret", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	got := claims.Actor()
	if got.Email != actor.Email || got.Name != actor.Name || len(got.Roles) != 1 || got.Roles[0] != RoleDean {
		t.Fatalf("claims mismatch: %+v", got)
	}

	if _, err := ParseToken("other-secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken("s", Actor{Email: "a@uni.edu"}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("s", token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestPermissionMatrix(t *testing.T) {
	employee := Actor{Email: "e@uni.edu"}
	dean := Actor{Email: "d@uni.edu", Roles: []string{RoleDean}}
	librarian := Actor{Email: "l@uni.edu", Roles: []string{RoleLibrarian}}
	admin := Actor{Email: "a@uni.edu", Roles: []string{RoleAdmin}}

	cases := []struct {
		actor Actor
		perm  string
		want  bool
	}{
		{employee, PermFormFill, true},
		{employee, PermResponsesReview, false},
		{employee, PermReportsRead, false},
		{dean, PermResponsesReview, true},
		{dean, PermLibraryReview, false},
		{dean, PermCatalogEdit, false},
		{librarian, PermLibraryReview, true},
		{librarian, PermResponsesReview, false},
		{admin, PermCatalogEdit, true},
		{admin, PermUsersManage, true},
		{Actor{}, PermFormFill, false},
	}
	for _, tc := range cases {
		if got := tc.actor.Can(tc.perm); got != tc.want {
			t.Errorf("%v.Can(%s) = %v, want %v", tc.actor.Roles, tc.perm, got, tc.want)
		}
	}
}

func TestRequire(t *testing.T) {
	if err := Require(Actor{}, PermFormFill); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := Require(Actor{Email: "e@uni.edu"}, PermCatalogEdit); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := RequireAny(Actor{Email: "l@uni.edu", Roles: []string{RoleLibrary}}, PermResponsesReview, PermLibraryReview); err != nil {
		t.Fatalf("expected library role to pass, got %v", err)
	}
}

func TestNormalizeRoles(t *testing.T) {
	got := NormalizeRoles([]string{" Library", "unknown", "admin", "admin"})
	if len(got) != 2 || got[0] != RoleAdmin || got[1] != RoleLibrary {
		t.Fatalf("unexpected roles: %v", got)
	}
}

func TestGoogleVerifierExtractsIdentity(t *testing.T) {
	v := &GoogleVerifier{ClientID: "client", validate: func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		if audience != "client" {
			t.Fatalf("unexpected audience %q", audience)
		}
		return &idtoken.Payload{Claims: map[string]any{
			"email":          "Anna.Nowak@Uni.edu",
			"email_verified": true,
			"given_name":     "Anna",
			"family_name":    "Nowak",
			"picture":        "https://img/a.png",
			"roles":          []any{"dziekan"},
		}}, nil
	}}

	id, err := v.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Email != "anna.nowak@uni.edu" || id.Name != "Anna" || id.LastName != "Nowak" || len(id.Roles) != 1 {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestGoogleVerifierRejectsUnverifiedEmail(t *testing.T) {
	v := &GoogleVerifier{validate: func(context.Context, string, string) (*idtoken.Payload, error) {
		return &idtoken.Payload{Claims: map[string]any{"email": "x@uni.edu", "email_verified": false}}, nil
	}}
	if _, err := v.Verify(context.Background(), "tok"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
