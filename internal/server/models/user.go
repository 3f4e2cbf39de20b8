package models

// User is one entry of the users collection file. The JSON names match the
// files written by earlier deployments.
type User struct {
	DisplayName  string `json:"nombre"`
	Email        string `json:"email"`
	PasswordHash string `json:"password"`
}

// Identity returns the part of the user that is bound to a session.
func (u User) Identity() Identity {
	return Identity{DisplayName: u.DisplayName, Email: u.Email}
}

// Public returns a copy safe to hand out: the hash is cleared.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// Identity is the authenticated caller carried by a session.
type Identity struct {
	DisplayName string `json:"nombre"`
	Email       string `json:"email"`
}
