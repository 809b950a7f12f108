package models

import "time"

// Address is a postal address. It is copied into orders, never referenced.
type Address struct {
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// User is the document stored in the 'users' collection.
// PasswordHash and Salt are persisted, so they must never be returned as is;
// use Public for responses.
type User struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Salt         string    `json:"salt,omitempty"`
	Address      *Address  `json:"address,omitempty"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the response shape of a user, without credentials.
type PublicUser struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Address     *Address  `json:"address,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		UserID:      u.UserID,
		Email:       u.Email,
		Name:        u.Name,
		Address:     u.Address,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt,
	}
}
