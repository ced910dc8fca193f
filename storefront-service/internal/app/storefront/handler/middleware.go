package handler

import (
	"net/http"
	"strings"

	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/session"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const sessionKey = "session"

// JWTClaims - claims токена провайдера идентичности.
// Role - только подсказка для первого входа, источник истины - аккаунт.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет bearer токен и привязывает запрос к сессии
type AuthMiddleware struct {
	jwtSecret string
	registry  *session.Registry
}

func NewAuthMiddleware(jwtSecret string, registry *session.Registry) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		registry:  registry,
	}
}

// Identify открывает сессию, если токен есть. Запрос без токена идет дальше
// анонимным, решение о доступе принимает гейт.
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Invalid authorization header format"})
			return
		}

		claims, err := m.parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Invalid or expired token"})
			return
		}

		sess, err := m.registry.SignIn(session.Identity{
			UID:      claims.UserID,
			Email:    claims.Email,
			Name:     claims.Name,
			RoleHint: claims.Role,
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Invalid user ID in token"})
			return
		}
		sess.Touch()

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func (m *AuthMiddleware) parse(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(m.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// currentSession - сессия, открытая Identify; nil для анонимного запроса
func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// currentAccount ждет загрузку профиля сессии
func currentAccount(c *gin.Context) (*entity.Account, error) {
	sess := currentSession(c)
	if sess == nil {
		return nil, session.ErrNotAuthenticated
	}
	return sess.Await(c.Request.Context())
}
