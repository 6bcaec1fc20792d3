package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/machbase/neo-polarmap/mods/logging"
	gometrics "github.com/rcrowley/go-metrics"
)

var (
	metricRequestTotal     = gometrics.GetOrRegisterCounter("polarmap.http.count", nil)
	metricResponseLatency  = gometrics.GetOrRegisterTimer("polarmap.http.latency", nil)
	metricSessionLatency   = gometrics.GetOrRegisterTimer("polarmap.http.session.latency", nil)
	metricRecvContentBytes = gometrics.GetOrRegisterCounter("polarmap.http.recv_bytes", nil)
	metricSendContentBytes = gometrics.GetOrRegisterCounter("polarmap.http.send_bytes", nil)
	metricStatus2xx        = gometrics.GetOrRegisterCounter("polarmap.http.status_2xx", nil)
	metricStatus3xx        = gometrics.GetOrRegisterCounter("polarmap.http.status_3xx", nil)
	metricStatus4xx        = gometrics.GetOrRegisterCounter("polarmap.http.status_4xx", nil)
	metricStatus5xx        = gometrics.GetOrRegisterCounter("polarmap.http.status_5xx", nil)
	metricSessionCreated   = gometrics.GetOrRegisterCounter("polarmap.session.created", nil)
	metricSessionClosed    = gometrics.GetOrRegisterCounter("polarmap.session.closed", nil)
	metricWatchers         = gometrics.GetOrRegisterCounter("polarmap.session.watchers", nil)
)

func MetricsInterceptor() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		metricRequestTotal.Inc(1)
		latency := time.Since(start)
		metricResponseLatency.Update(latency)
		if strings.HasPrefix(c.Request.URL.Path, "/api/sessions/") && !strings.HasSuffix(c.Request.URL.Path, "/watch") {
			metricSessionLatency.Update(latency)
		}
		if s := c.Request.ContentLength; s > 0 {
			metricRecvContentBytes.Inc(s)
		}
		if s := c.Writer.Size(); s > 0 {
			metricSendContentBytes.Inc(int64(s))
		}

		status := c.Writer.Status()
		if status < 300 {
			metricStatus2xx.Inc(1)
		} else if status < 400 {
			metricStatus3xx.Inc(1)
		} else if status < 500 {
			metricStatus4xx.Inc(1)
		} else {
			metricStatus5xx.Inc(1)
		}
	}
}

func RecoveryWithLogging(log logging.Log, recovery ...gin.RecoveryFunc) gin.HandlerFunc {
	gin.DefaultWriter = log
	gin.DefaultErrorWriter = log

	if len(recovery) > 0 {
		return gin.CustomRecoveryWithWriter(log, recovery[0])
	}
	return gin.CustomRecoveryWithWriter(log, func(c *gin.Context, err any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "reason": fmt.Sprintf("%v", err)})
	})
}

type HttpLoggerFilter func(req *http.Request, statusCode int, latency time.Duration) bool

func HttpLogger(loggingName string, logEnabled *bool, logLatencyThreshold *time.Duration) gin.HandlerFunc {
	return HttpLoggerWithFilter(loggingName, func(req *http.Request, statusCode int, latency time.Duration) bool {
		if logEnabled == nil || !*logEnabled {
			return false
		}
		if statusCode >= 400 {
			return true
		}
		if logLatencyThreshold == nil || *logLatencyThreshold < 0 {
			return false
		}
		return latency >= *logLatencyThreshold
	})
}

func HttpLoggerWithFilter(loggingName string, filter HttpLoggerFilter) gin.HandlerFunc {
	return logger(logging.GetLog(loggingName), filter)
}

func logger(log logging.Log, filter HttpLoggerFilter) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if strings.HasSuffix(c.Request.URL.Path, "/healthz") && c.Request.Method == http.MethodGet {
			return
		}

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if filter != nil && !filter(c.Request, statusCode, latency) {
			return
		}

		url := c.Request.Host + c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; len(raw) > 0 {
			url = url + "?" + raw
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()
		if len(errorMessage) > 0 {
			errorMessage = "\n" + errorMessage
		}
		wSize := c.Writer.Size()
		if wSize == -1 {
			wSize = 0
		}

		color := ""
		reset := "\033[0m"
		level := logging.LevelDebug
		switch {
		case statusCode >= http.StatusContinue && statusCode < http.StatusOK:
			color, reset = "", ""
		case statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices:
			color = "\033[97;42m"
		case statusCode >= http.StatusMultipleChoices && statusCode < http.StatusBadRequest:
			color = "\033[90;47m"
		case statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError:
			color = "\033[90;43m"
		default:
			color = "\033[97;41m"
			level = logging.LevelError
		}

		log.Logf(level, "%s %3d %s| %13v | %15s | %8s | %8s | %s %-7s %s%s",
			color, statusCode, reset,
			latency,
			c.ClientIP(),
			humanizeByteCount(c.Request.ContentLength),
			humanizeByteCount(int64(wSize)),
			c.Request.Proto,
			c.Request.Method,
			url,
			errorMessage,
		)
	}
}

func humanizeByteCount(b int64) string {
	const unit = 1000
	if b < 0 {
		b = 0
	}
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "kMGTPE"[exp])
}
