package httpapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultAction = "list"

// action is taken from the query string, then from a form body, and
// defaults to list.
func action(c echo.Context) string {
	if a := c.QueryParam("action"); a != "" {
		return a
	}
	if a := c.FormValue("action"); a != "" {
		return a
	}
	return defaultAction
}

// request carries every field any action reads. JSON and form bodies are
// both accepted.
type request struct {
	Name     string   `json:"nombre" form:"nombre"`
	Email    string   `json:"email" form:"email"`
	Password string   `json:"password" form:"password"`
	ID       string   `json:"id" form:"id"`
	Index    position `json:"index" form:"index"`
}

func bindRequest(c echo.Context) (request, error) {
	req := request{Index: -1}
	// raw JSON without a content type is still JSON
	if c.Request().Header.Get(echo.HeaderContentType) == "" {
		c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return req, err
	}
	return req, nil
}

// position is a record index that may arrive as a JSON number or a numeric
// string. Absent or null reads as -1, which never resolves.
type position int

func (p *position) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*p = -1
	case float64:
		if x != float64(int(x)) {
			return fmt.Errorf("index %v is not an integer", x)
		}
		*p = position(x)
	case string:
		return p.UnmarshalParam(x)
	default:
		return fmt.Errorf("index must be a number")
	}
	return nil
}

// UnmarshalParam implements echo.BindUnmarshaler for form values.
func (p *position) UnmarshalParam(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*p = -1
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("index %q is not an integer", s)
	}
	*p = position(n)
	return nil
}
