package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tooltrack-backend/internal/response"
	"github.com/unrolled/secure"
)

// SecureHeaders applies the standard security headers. In development the
// HSTS header is left out by unrolled/secure itself.
func SecureHeaders(isDevelopment bool) gin.HandlerFunc {
	s := secure.New(secure.Options{
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		ReferrerPolicy:       "strict-origin-when-cross-origin",
		STSSeconds:           31536000,
		STSIncludeSubdomains: true,
		SSLProxyHeaders:      map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:        isDevelopment,
	})

	return func(c *gin.Context) {
		if err := s.Process(c.Writer, c.Request); err != nil {
			_ = c.Error(err)
			response.AbortFail(c, http.StatusBadRequest, response.ErrForbidden)
			return
		}
		c.Next()
	}
}
