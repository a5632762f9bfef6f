package app

import (
	"net/http"

	"github.com/Fedot0v/online-cinema-api/internal/domain"
)

type sessionKey string

const (
	SessionKeyUserId    = sessionKey("userID")
	SessionKeyUserGroup = sessionKey("userGroup")
)

func (s sessionKey) String() string {
	return string(s)
}

func (app *Application) contextGetUserId(r *http.Request) int {
	userId, ok := r.Context().Value(SessionKeyUserId).(int)
	if !ok {
		panic("missing user id from context")
	}

	return userId
}

func (app *Application) contextGetUserGroup(r *http.Request) domain.Group {
	group, ok := r.Context().Value(SessionKeyUserGroup).(domain.Group)
	if !ok {
		panic("missing user group from context")
	}

	return group
}
