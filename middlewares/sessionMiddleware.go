package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/utils"
)

// SessionMiddleware resolves the caller's business from request headers and
// attaches it to the request context. When a session token is supplied it
// must resolve to a cached session; the business-id header alone is enough
// for trusted internal callers.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token := c.Request.Header.Get("token")
		if token != "" {
			var userName string
			exists, err := config.GetRedisObject("Token:"+token, &userName)
			if err != nil || !exists {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				c.Abort()
				return
			}
			ctx = utils.SetUserNameInContext(ctx, userName)
		}

		businessId := c.Request.Header.Get("business-id")
		if businessId != "" {
			ctx = utils.SetBusinessIdInContext(ctx, businessId)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
