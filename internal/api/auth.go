package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingClaim = errors.New("missing claim")

// parseToken validates the bearer token and extracts the chat identity:
// the user ID plus the Gmail OAuth access token minted by the auth frontend.
func parseToken(tokenStr, secret string) (userID, gmailToken string, err error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", jwt.ErrTokenMalformed
	}

	userID, ok = claims["user_id"].(string)
	if !ok || userID == "" {
		return "", "", errMissingClaim
	}
	gmailToken, ok = claims["gmail_token"].(string)
	if !ok || gmailToken == "" {
		return "", "", errMissingClaim
	}
	return userID, gmailToken, nil
}

func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
