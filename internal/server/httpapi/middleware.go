package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/server/session"
)

const tokenKey = "session_token"

// sessionToken finds the caller's token: cookie first, then the session
// header, then a bearer Authorization header.
func sessionToken(c echo.Context) string {
	if cookie, err := c.Cookie(common.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if t := c.Request().Header.Get(common.SessionHeaderName); t != "" {
		return t
	}
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// sessionMiddleware binds the identity of a valid token to the request
// context. Requests without one continue anonymously; protected actions
// reject them.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := sessionToken(c)
		if token == "" {
			return next(c)
		}
		c.Set(tokenKey, token)

		req := c.Request()
		id, err := s.sessions.Resolve(token)
		if err != nil {
			s.logger.Debug(req.Context(), "session not resolved", "error", err)
			return next(c)
		}

		c.SetRequest(req.WithContext(session.WithIdentity(req.Context(), id)))
		return next(c)
	}
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info(c.Request().Context(), "request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			)
			return nil
		},
	})
}
