package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/rpattn/testbed-analytics/internal/entityloader"
	"github.com/rpattn/testbed-analytics/internal/query"
)

// DataLoader attaches a fresh site loader to every request context so
// batching never crosses requests.
func DataLoader(exec query.Executor) gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := entityloader.NewSiteLoader(exec)
		ctx := entityloader.WithSiteLoader(c.Request.Context(), loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
