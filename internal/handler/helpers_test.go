package handler

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	internalmiddleware "github.com/noah-isme/conf-schedule-api/internal/middleware"
	"github.com/noah-isme/conf-schedule-api/internal/models"
)

// newTestRouter stubs authentication: X-Test-User becomes the caller's user id.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: user})
		}
		c.Next()
	})
	return router
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func strPtr(v string) *string { return &v }
