package middleware

import (
	"strings"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware 解析调用者身份：优先 Bearer Token，开启 trust_headers 时接受网关注入的头
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString != "" {
			claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
			if err != nil {
				logger.Log.Debug("jwt rejected", zap.Error(err))
				util.Unauthorized(c)
				c.Abort()
				return
			}
			util.SetPrincipal(c, claims.Principal())
			c.Next()
			return
		}

		if cfg.Auth.TrustHeaders {
			p := model.Principal{
				UserID: strings.TrimSpace(c.GetHeader(util.HeaderUserID)),
				Role:   model.UserRole(strings.TrimSpace(c.GetHeader(util.HeaderUserRole))),
			}
			if p.UserID != "" && p.Role.Valid() {
				util.SetPrincipal(c, p)
				c.Next()
				return
			}
		}

		util.Unauthorized(c)
		c.Abort()
	}
}

func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := util.GetPrincipal(c)
		if !ok {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		// 管理员拥有所有教师权限
		hasRole := p.IsAdmin()
		for _, role := range roles {
			if p.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
