package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sngm3741/hushmap-services/api/internal/config"
	commonhttp "github.com/sngm3741/hushmap-services/api/internal/interfaces/http/common"
)

type authClaims struct {
	jwt.RegisteredClaims
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// authenticator は HS256 署名の Bearer トークンを検証し、呼び出し元の Identity を取り出す。
type authenticator struct {
	jwt config.JWTConfig
}

// requireAuth は有効なトークンが無いリクエストを 401 で拒否する。
func (a authenticator) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			commonhttp.WriteJSON(nil, w, http.StatusUnauthorized, commonhttp.ErrorResponse{Error: err.Error()})
			return
		}

		identity, err := a.parse(tokenString)
		if err != nil {
			commonhttp.WriteJSON(nil, w, http.StatusUnauthorized, commonhttp.ErrorResponse{Error: "invalid or expired token"})
			return
		}

		ctx := commonhttp.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuth はトークンが有効なら Identity を付与し、無効・未指定なら匿名として通す。
func (a authenticator) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err == nil {
			if identity, err := a.parse(tokenString); err == nil {
				r = r.WithContext(commonhttp.ContextWithIdentity(r.Context(), identity))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", fmt.Errorf("authentication required")
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", fmt.Errorf("bearer token required")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	if tokenString == "" {
		return "", fmt.Errorf("access token is empty")
	}
	return tokenString, nil
}

func (a authenticator) parse(tokenString string) (commonhttp.Identity, error) {
	if len(a.jwt.Secret) == 0 {
		return commonhttp.Identity{}, fmt.Errorf("認証設定が構成されていません")
	}

	claims := &authClaims{}
	opts := []jwt.ParserOption{jwt.WithLeeway(30 * time.Second), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.jwt.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.jwt.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.jwt.Secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return commonhttp.Identity{}, fmt.Errorf("アクセストークンが無効です")
	}

	id := claims.ID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return commonhttp.Identity{}, fmt.Errorf("アクセストークンに利用者 ID がありません")
	}
	return commonhttp.Identity{ID: id, Email: claims.Email}, nil
}
