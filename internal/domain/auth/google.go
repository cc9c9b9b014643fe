package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// Identity is what an identity provider tells us about a signed-in user.
type Identity struct {
	Email    string
	Name     string
	LastName string
	Avatar   string
	Roles    []string
}

type GoogleVerifier struct {
	ClientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID, validate: idtoken.Validate}
}

// Verify checks a Google ID token and extracts the identity claims.
// A "roles" claim, when present, is carried through as provider roles.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	payload, err := v.validate(ctx, token, v.ClientID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return Identity{}, fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return Identity{}, fmt.Errorf("%w: email claim missing", ErrInvalidToken)
	}

	id := Identity{Email: NormalizeEmail(email)}
	id.Name, _ = payload.Claims["given_name"].(string)
	if id.Name == "" {
		id.Name, _ = payload.Claims["name"].(string)
	}
	id.LastName, _ = payload.Claims["family_name"].(string)
	id.Avatar, _ = payload.Claims["picture"].(string)
	if raw, ok := payload.Claims["roles"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	return id, nil
}
