package models

// AuthRealm is the permission level attached to a login password.
type AuthRealm string

const (
	RealmViewer  AuthRealm = "viewer"
	RealmTrainer AuthRealm = "trainer"
)

// Authentication stores one realm password hash. Logging in with the matching
// password grants the realm's permission level; there are no per-user accounts.
type Authentication struct {
	ID           int       `json:"id"`
	Name         AuthRealm `json:"name"`
	PasswordHash string    `json:"-"`
}

type Credentials struct {
	Password string `json:"password"`
}
