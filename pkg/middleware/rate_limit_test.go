package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inksign/inksign/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// limited builds an engine whose requests carry the claims named by the
// X-Claim-Uid / X-Claim-Sub headers, as AuthMiddleware would set them.
func limited(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		claims := map[string]interface{}{}
		if v := c.GetHeader("X-Claim-Uid"); v != "" {
			claims["uid"] = v
		}
		if v := c.GetHeader("X-Claim-Sub"); v != "" {
			claims["sub"] = v
		}
		if len(claims) > 0 {
			c.Set("claims", claims)
		}
		c.Next()
	})
	r.Use(RateLimitMiddleware(rps, burst))
	r.GET("/x", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func send(r *gin.Engine, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware_AllowsBurst(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	r := limited(10, 3)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, send(r, nil))
	}
	require.Equal(t, 3.0, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))-before)
}

func TestRateLimitMiddleware_RejectsThenRefills(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory"))
	r := limited(2, 1)

	require.Equal(t, http.StatusOK, send(r, nil))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
	require.JSONEq(t, `{"error":"rate_limited","message":"rate limit exceeded"}`, w.Body.String())
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory"))-before)

	// 2 rps refills a token in 500ms
	time.Sleep(600 * time.Millisecond)
	require.Equal(t, http.StatusOK, send(r, nil))
}

func TestRateLimitMiddleware_Keys(t *testing.T) {
	tests := []struct {
		name         string
		first, again map[string]string
		wantAgain    int
	}{
		{"same uid shares a bucket", map[string]string{"X-Claim-Uid": "alex"}, map[string]string{"X-Claim-Uid": "alex"}, http.StatusTooManyRequests},
		{"different uids are separate", map[string]string{"X-Claim-Uid": "alex"}, map[string]string{"X-Claim-Uid": "blake"}, http.StatusOK},
		{"sub used without uid", map[string]string{"X-Claim-Sub": "kc-1"}, map[string]string{"X-Claim-Sub": "kc-1"}, http.StatusTooManyRequests},
		{"uid wins over sub", map[string]string{"X-Claim-Uid": "alex", "X-Claim-Sub": "kc-1"}, map[string]string{"X-Claim-Sub": "kc-1"}, http.StatusOK},
		{"user and anonymous ip are separate", map[string]string{"X-Claim-Uid": "alex"}, nil, http.StatusOK},
		{"anonymous shares the ip bucket", nil, nil, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := limited(0.1, 1)
			require.Equal(t, http.StatusOK, send(r, tt.first))
			require.Equal(t, tt.wantAgain, send(r, tt.again))
		})
	}
}

func TestRateLimitMiddleware_InstancesDoNotShareBuckets(t *testing.T) {
	a, b := limited(0.1, 1), limited(0.1, 1)
	require.Equal(t, http.StatusOK, send(a, nil))
	require.Equal(t, http.StatusOK, send(b, nil))
}
