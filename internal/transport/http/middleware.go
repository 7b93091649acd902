package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ContextKeyUserID is the gin context key for the authenticated learner.
const ContextKeyUserID = "user_id"

var errNoIdentity = errors.New("no identity in request")

// Identity resolves the calling learner. With a secret configured the caller
// must present an HS256 JWT (Authorization: Bearer, or ?token= for websockets)
// whose subject is the user id. Without one, X-User-ID or ?userId= is trusted.
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := resolveUser(c, secret)
		switch {
		case errors.Is(err, errNoIdentity):
			fail(c, http.StatusUnauthorized, ErrTokenRequired, nil)
			return
		case err != nil:
			fail(c, http.StatusUnauthorized, ErrTokenInvalid, nil)
			return
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

func resolveUser(c *gin.Context, secret string) (string, error) {
	if secret == "" {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = c.Query("userId")
		}
		if userID == "" {
			return "", errNoIdentity
		}
		return userID, nil
	}

	tokenStr := ""
	if parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		tokenStr = parts[1]
	}
	// browsers cannot set headers on a websocket upgrade
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}
	if tokenStr == "" {
		return "", errNoIdentity
	}
	return parseSubject(tokenStr, secret)
}

func parseSubject(tokenStr, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// RequestLogger writes one structured line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error().Str("error", c.Errors.String())
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}
		event.
			Str("request_id", c.GetString(ContextKeyRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("user_id", c.GetString(ContextKeyUserID)).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
