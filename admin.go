package sitecms

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const sessionName = "admin_session"

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

// IsAdmin checks if the current session carries the admin flag. The flag is
// informational: content routes do not consult it.
func IsAdmin(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	auth, ok := sess.Values["authenticated"].(bool)
	return ok && auth
}

func setAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["authenticated"] = true
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if a.Config.AdminPassword == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, apiError{Error: "Admin login is not configured"})
	}
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, apiError{Error: "Too many login attempts. Try again later."})
	}
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.Config.AdminPassword)) != 1 {
		a.loginLimiter.Record(ip)
		a.Log.Warn("admin login failed", zap.String("ip", ip))
		return echo.NewHTTPError(http.StatusUnauthorized, apiError{Error: "Invalid password"})
	}
	a.loginLimiter.Reset(ip)
	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true, "isAdmin": true})
}

func handleAdminSession(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"isAdmin": IsAdmin(c)})
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
