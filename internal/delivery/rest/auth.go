package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

var errNoUserClaim = errors.New("token has no user id claim")

// Auth authenticates requests with an HS256 bearer token issued by the
// identity service. The user ID is read from the user_id or id claim.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		userID, err := parseUserID(token, key)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func parseUserID(tokenString string, key []byte) (int64, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}

	for _, name := range []string{"user_id", "id"} {
		raw, ok := claims[name]
		if !ok {
			continue
		}
		id, err := claimToID(raw)
		if err != nil {
			return 0, fmt.Errorf("claim %s: %w", name, err)
		}
		return id, nil
	}

	return 0, errNoUserClaim
}

func claimToID(raw any) (int64, error) {
	var id int64
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("non-integer id %v", v)
		}
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, err
		}
		id = parsed
	default:
		return 0, fmt.Errorf("unsupported id type %T", raw)
	}

	if id <= 0 {
		return 0, fmt.Errorf("non-positive id %d", id)
	}
	return id, nil
}

// currentUser returns the ID set by Auth.
func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
