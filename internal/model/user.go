// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the only persisted entity.
//
// A credential account has PersonalInfo.Password set to a bcrypt hash. A
// federated account (GoogleAuth = true) has no password at all; an empty
// string means "absent". The password never leaves the server: it is tagged
// json:"-" and the response formatter never copies it.
type User struct {
	ID           string       `json:"-"`
	PersonalInfo PersonalInfo `json:"personal_info"`
	GoogleAuth   bool         `json:"google_auth"`
	CreatedAt    time.Time    `json:"joinedAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type PersonalInfo struct {
	Fullname   string `json:"fullname"`
	Email      string `json:"email"`
	Password   string `json:"-"`
	Username   string `json:"username"`
	ProfileImg string `json:"profile_img"`
}

// HasPassword reports whether the account can sign in with a local password.
func (u *User) HasPassword() bool {
	return u.PersonalInfo.Password != ""
}

// Public returns a copy of u with the password stripped.
func (u *User) Public() *User {
	cp := *u
	cp.PersonalInfo.Password = ""
	return &cp
}

// Profile is the public view returned by GET /api/me.
type Profile struct {
	Fullname   string `json:"fullname"`
	Username   string `json:"username"`
	ProfileImg string `json:"profile_img"`
	GoogleAuth bool   `json:"google_auth"`
}
