package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"ncov-crawler/internal/crawler/metrics"
)

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/records/:collection", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/records/News", "/records/Area", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.HttpRequestsTotal.WithLabelValues("GET", "/records/:collection", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.HttpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
