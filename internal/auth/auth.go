package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"setlist-service/internal/setlist"
)

// TokenClaims identify the caller of the setlist API.
type TokenClaims struct {
	Nickname  string `json:"nick"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func parseRole(s string) setlist.Role {
	switch setlist.Role(strings.ToLower(strings.TrimSpace(s))) {
	case setlist.RoleLeader:
		return setlist.RoleLeader
	case setlist.RoleOperator:
		return setlist.RoleOperator
	}
	return setlist.RoleMember
}

// ParseToken validates an access token signed with secret.
func ParseToken(secret []byte, raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.TokenType != "access" || strings.TrimSpace(claims.Nickname) == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// IssueToken signs an access token for nickname with the given role.
func IssueToken(secret []byte, nickname string, role setlist.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Nickname:  nickname,
		Role:      string(role),
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   nickname,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Middleware resolves the actor from a bearer token. Websocket clients
// cannot set headers, so a "token" query parameter is accepted as well.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.URL.Query().Get("token")
			if h := r.Header.Get("Authorization"); h != "" {
				parts := strings.SplitN(h, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					writeError(w, http.StatusUnauthorized, "invalid Authorization header")
					return
				}
				raw = parts[1]
			}
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			claims, err := ParseToken(secret, raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			actor := setlist.Actor{Nickname: claims.Nickname, Role: parseRole(claims.Role)}
			r.Header.Set("X-User-Id", actor.Nickname)
			next.ServeHTTP(w, r.WithContext(setlist.WithActor(r.Context(), actor)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}
