package models

// User is the slice of the users table the workers care about: identity
// plus the contact channels a digest can reach.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// CanReceiveEmail reports whether the user has an email address on file.
func (u User) CanReceiveEmail() bool { return u.Email != "" }

// CanReceiveSMS reports whether the user has a phone number on file.
func (u User) CanReceiveSMS() bool { return u.Phone != "" }
