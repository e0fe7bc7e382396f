package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const tenantIDKey = "tenant_id"

// TokenValidator 校验令牌并返回租户 ID
type TokenValidator interface {
	Validate(token string) (string, error)
}

// TenantAuth 要求 Bearer 令牌中的租户与路径参数 tenant_id 一致
func TenantAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abort(c, http.StatusUnauthorized, "missing or malformed Authorization header")
			return
		}

		tenantID, err := v.Validate(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if param := c.Param(tenantIDKey); param != "" && param != tenantID {
			abort(c, http.StatusForbidden, "token is not valid for this tenant")
			return
		}

		c.Set(tenantIDKey, tenantID)
		c.Next()
	}
}

// GetTenantID 从上下文获取令牌中的租户 ID
func GetTenantID(c *gin.Context) string {
	if tenantID, exists := c.Get(tenantIDKey); exists {
		if id, ok := tenantID.(string); ok {
			return id
		}
	}
	return ""
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "msg": msg})
}
