package middleware

import (
	"context"
	"net/http"
	"strings"

	"chargedesk/internal/logger"
	"chargedesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorKey = "actorID"

// PermissionChecker is the subset of access control the middleware needs.
type PermissionChecker interface {
	Can(ctx context.Context, actorID uuid.UUID, permission string) (bool, error)
}

// tokenFromRequest reads the bearer token, falling back to the access_token cookie.
func tokenFromRequest(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// ParseSubject validates an HMAC-signed token and returns its subject as a user id.
func ParseSubject(tokenString string, secret []byte) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

// Authenticate resolves the caller from a JWT issued by the identity provider.
// Tokens are not issued here.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := tokenFromRequest(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing or malformed. Expected 'Bearer <token>'"))
			return
		}

		actorID, err := ParseSubject(tokenString, secret)
		if err != nil {
			logger.Debug("rejected token", "error", err, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		c.Set(actorKey, actorID)
		c.Next()
	}
}

// ActorID returns the authenticated user set by Authenticate.
func ActorID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequirePermission passes when the authenticated actor holds any of perms.
// It must run after Authenticate.
func RequirePermission(checker PermissionChecker, perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := ActorID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		for _, perm := range perms {
			allowed, err := checker.Can(c.Request.Context(), actorID, perm)
			if err != nil {
				logger.Error("permission check failed", "actor", actorID, "permission", perm, "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
				return
			}
			if allowed {
				c.Next()
				return
			}
		}

		missing := ""
		if len(perms) > 0 {
			missing = perms[0]
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+missing+"'"))
	}
}
