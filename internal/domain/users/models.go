package users

import (
	"time"

	"selfeval/internal/domain/auth"
)

const Collection = "users"

type Profile struct {
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	LastName     string     `json:"lastName,omitempty"`
	Roles        []string   `json:"roles"`
	Avatar       string     `json:"avatar,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// Directory maps lowercased e-mail addresses to configured roles.
type Directory map[string][]string

func NewDirectory(admins, deans, librarians []string) Directory {
	d := Directory{}
	add := func(emails []string, role string) {
		for _, e := range emails {
			d[e] = append(d[e], role)
		}
	}
	add(admins, auth.RoleAdmin)
	add(deans, auth.RoleDean)
	add(librarians, auth.RoleLibrarian)
	return d
}
