package middleware

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

// 初始化日志配置
func init() {
	// 设置输出到标准输出
	log.SetOutput(os.Stdout)
	// 设置日志格式为JSON格式
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	// 根据环境变量设置日志级别
	if os.Getenv("DEBUG") == "true" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// LogOptions 日志输出配置
type LogOptions struct {
	Level      string // 日志级别
	File       string // 日志文件路径，为空时只输出到标准输出
	MaxSizeMB  int    // 单个文件大小上限
	MaxBackups int    // 保留的旧文件数量
	MaxAgeDays int    // 旧文件保留天数
	Compress   bool   // 是否压缩旧文件
}

// ConfigureLogger 按配置调整全局日志记录器
// 配置了文件路径时同时写入标准输出和滚动日志文件
func ConfigureLogger(opts LogOptions) io.Closer {
	if opts.Level != "" {
		if level, err := logrus.ParseLevel(opts.Level); err == nil {
			log.SetLevel(level)
		} else {
			log.WithField("level", opts.Level).Warn("Unknown log level, keeping current level")
		}
	}

	if opts.File == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Logger 日志中间件
// 记录请求信息和响应时间
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 开始时间
		start := time.Now()

		// 记录请求路径
		path := c.Request.URL.Path

		// 处理请求前
		c.Next()

		// 记录日志
		entry := log.WithFields(logrus.Fields{
			FieldStatus:   c.Writer.Status(),
			FieldLatency:  time.Since(start).String(),
			FieldClientIP: c.ClientIP(),
			FieldMethod:   c.Request.Method,
			FieldPath:     path,
			FieldTraceID:  GetTraceID(c),
		})
		if id := c.GetString(sessionIDKey); id != "" {
			entry = entry.WithField(FieldSessionID, id)
		}
		entry.Info("HTTP request")
	}
}

// RequestBodyLog 请求体日志中间件
// 在DEBUG模式下记录JSON请求体，文件上传不记录
func RequestBodyLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		if log.IsLevelEnabled(logrus.DebugLevel) &&
			c.Request.Body != nil &&
			strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
			var buf bytes.Buffer
			tee := io.TeeReader(c.Request.Body, &buf)
			body, _ := io.ReadAll(tee)
			c.Request.Body = io.NopCloser(&buf)

			if len(body) > 0 {
				log.WithFields(logrus.Fields{
					FieldMethod: c.Request.Method,
					FieldPath:   c.Request.URL.Path,
					"body":      string(body),
				}).Debug("Request body")
			}
		}

		c.Next()
	}
}

// SetTraceID 将追踪ID设置到上下文和响应头中
func SetTraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从请求头中获取追踪ID
		traceID := c.GetHeader(TraceIDHeader)

		// 如果没有，则生成一个新的
		if traceID == "" {
			traceID = uuid.New().String()
		}

		// 设置到上下文
		c.Set(traceIDKey, traceID)

		// 设置到响应头
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID 获取当前请求的追踪ID
func GetTraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}

// TraceIDHeader 追踪ID请求头
const TraceIDHeader = "X-Trace-ID"

const traceIDKey = "TraceID"

// 常用日志字段
const (
	FieldTraceID   = "trace_id"    // 追踪ID
	FieldSessionID = "session_id"  // 会话ID
	FieldPath      = "path"        // 请求路径
	FieldMethod    = "method"      // 请求方法
	FieldStatus    = "status_code" // 状态码
	FieldLatency   = "latency"     // 延迟时间
	FieldClientIP  = "client_ip"   // 客户端IP
	FieldError     = "error"       // 错误信息
)

// GetLogger 获取全局日志记录器
func GetLogger() *logrus.Logger {
	return log
}
