package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

func TestNewHonoursLevel(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "warn", Format: "json"}})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestGinMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		path  string
		code  int
		level zapcore.Level
	}{
		{"/ok", http.StatusOK, zapcore.InfoLevel},
		{"/conflict", http.StatusConflict, zapcore.WarnLevel},
		{"/boom", http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			r := gin.New()
			r.Use(requestid.Middleware(), GinMiddleware(zap.New(core)))
			code := tc.code
			r.GET(tc.path, func(c *gin.Context) { c.Status(code) })

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("X-Request-ID", "req-7")
			r.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tc.level, entries[0].Level)
			fields := entries[0].ContextMap()
			assert.Equal(t, "req-7", fields["request_id"])
			assert.Equal(t, int64(code), fields["status"])
		})
	}
}
