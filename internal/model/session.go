package model

import "strings"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Session is the authenticated caller. A nil Session means nobody is logged in.
type Session struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (s *Session) Authenticated() bool {
	return s != nil && strings.TrimSpace(s.UserID) != ""
}

func (s *Session) IsAdmin() bool {
	return s != nil && strings.EqualFold(string(s.Role), string(RoleAdmin))
}
