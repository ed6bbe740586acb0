package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid bearer token")
	ErrInvalidActor    = errors.New("invalid actor header")
)

// resolveActor identifies the caller. A bearer token is checked first, then
// the gateway header, then the guest actor. The request body is never
// consulted.
func (c Config) resolveActor(r *http.Request) (int64, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return 0, ErrInvalidToken
		}
		actor, ok := c.Tokens[strings.TrimSpace(token)]
		if !ok || actor <= 0 {
			return 0, ErrInvalidToken
		}
		return actor, nil
	}

	if c.ActorHeader != "" {
		if raw := r.Header.Get(c.ActorHeader); raw != "" {
			actor, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil || actor <= 0 {
				return 0, ErrInvalidActor
			}
			return actor, nil
		}
	}

	if c.GuestActor > 0 {
		return c.GuestActor, nil
	}
	return 0, ErrUnauthenticated
}
