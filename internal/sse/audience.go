package sse

import (
	"strings"

	"logimatch/internal/model"
)

// Audience selects the sessions an event is delivered and replayed to. The
// zero value reaches everyone.
type Audience struct {
	UserID string
	Role   model.Role
}

func Everyone() Audience {
	return Audience{}
}

func ToUser(userID string) Audience {
	return Audience{UserID: strings.TrimSpace(userID)}
}

func ToRole(role model.Role) Audience {
	return Audience{Role: role}
}

func (a Audience) Includes(session model.Session) bool {
	if a.UserID != "" && a.UserID != session.UserID {
		return false
	}
	return a.Role == "" || strings.EqualFold(string(a.Role), string(session.Role))
}
