package middleware

import (
	"errors"
	"net/http"

	"github.com/fyerfyer/tclass-evaluator/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionCookie 会话Cookie名称
const SessionCookie = "tclass_session"

const (
	sessionKey      = "Session"
	sessionIDKey    = "SessionID"
	sessionStoreKey = "SessionStore"
)

// SessionOptions 会话Cookie配置
type SessionOptions struct {
	Secure bool // 仅通过HTTPS发送Cookie
}

// Session 会话中间件
// 按Cookie加载会话并在请求期间持有该会话的锁，同一会话的请求串行执行。
// 处理器修改会话后需调用CommitSession保存，未保存的修改在请求结束后丢弃
func Session(store *session.Store, opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		if !session.ValidID(id) {
			id = ""
		}

		if id != "" {
			unlock := store.Lock(id)
			defer unlock()
		}

		sess, _, err := store.Load(id)
		if err != nil {
			log.WithFields(logrus.Fields{
				FieldSessionID: id,
				FieldTraceID:   GetTraceID(c),
			}).WithError(err).Error("Failed to load session")
			HandleError(c, NewInternalError("failed to load session"))
			c.Abort()
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, sess.ID, int(store.TTL().Seconds()), "/", "", opts.Secure, true)

		c.Set(sessionKey, sess)
		c.Set(sessionIDKey, sess.ID)
		c.Set(sessionStoreKey, store)

		c.Next()
	}
}

// GetSession 获取当前请求的会话
func GetSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// CommitSession 保存当前请求对会话的修改
func CommitSession(c *gin.Context) error {
	sess := GetSession(c)
	v, ok := c.Get(sessionStoreKey)
	if sess == nil || !ok {
		return errors.New("session middleware is not installed")
	}

	if err := v.(*session.Store).Save(sess); err != nil {
		log.WithFields(logrus.Fields{
			FieldSessionID: sess.ID,
			FieldTraceID:   GetTraceID(c),
		}).WithError(err).Error("Failed to save session")
		return NewInternalError("failed to save session")
	}
	return nil
}
