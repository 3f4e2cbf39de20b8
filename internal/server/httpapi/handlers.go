package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
	"github.com/dmitrijs2005/gophbook/internal/server/records"
	"github.com/dmitrijs2005/gophbook/internal/server/session"
)

type actionFunc func(c echo.Context, req request) error

func (s *Server) dispatch(c echo.Context) error {
	name := action(c)

	handler, found := s.actions[name]
	if !found {
		return fmt.Errorf("%w: %s", common.ErrorUnsupportedAction, name)
	}

	req, err := bindRequest(c)
	if err != nil {
		return err
	}

	return handler(c, req)
}

func (s *Server) handleRegister(c echo.Context, req request) error {
	ctx := c.Request().Context()

	user, err := s.users.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Registered", "email", user.Email)
	return s.startSession(c, user)
}

func (s *Server) handleLogin(c echo.Context, req request) error {
	ctx := c.Request().Context()

	user, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Logged in", "email", user.Email)
	return s.startSession(c, user)
}

func (s *Server) startSession(c echo.Context, user *models.User) error {
	token, id, err := s.sessions.Establish(*user)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.Validity() / time.Second),
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})
	c.Response().Header().Set(common.SessionHeaderName, token)

	return ok(c, id)
}

func (s *Server) handleLogout(c echo.Context, _ request) error {
	if token, isString := c.Get(tokenKey).(string); isString {
		s.sessions.Destroy(token)
	}

	c.SetCookie(&http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
	})

	return ok(c, []any{})
}

func (s *Server) handleAuth(c echo.Context, _ request) error {
	id, err := session.Require(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, id)
}

func (s *Server) handleList(c echo.Context, _ request) error {
	ctx := c.Request().Context()
	if _, err := session.Require(ctx); err != nil {
		return err
	}

	list, err := s.records.List(ctx)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (s *Server) handleCreate(c echo.Context, req request) error {
	ctx := c.Request().Context()
	if _, err := session.Require(ctx); err != nil {
		return err
	}

	list, err := s.records.Create(ctx, req.Name, req.Email)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (s *Server) handleUpdate(c echo.Context, req request) error {
	ctx := c.Request().Context()
	if _, err := session.Require(ctx); err != nil {
		return err
	}

	list, err := s.records.Update(ctx, req.locator(), req.Name, req.Email)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (s *Server) handleDelete(c echo.Context, req request) error {
	ctx := c.Request().Context()
	if _, err := session.Require(ctx); err != nil {
		return err
	}

	list, err := s.records.Delete(ctx, req.locator())
	if err != nil {
		return err
	}
	return ok(c, list)
}

// locator prefers the stable id when the client sent one.
func (r request) locator() records.Locator {
	if r.ID != "" {
		return records.ByID(r.ID)
	}
	return records.ByIndex(int(r.Index))
}
