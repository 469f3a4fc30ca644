package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/duynhne/credential-service/config"
)

// CookieSettings describes the cookie that carries the session token.
type CookieSettings struct {
	Name   string
	Domain string
	MaxAge time.Duration
	Secure bool
}

// CookieSettingsFromConfig derives cookie settings from the service configuration.
func CookieSettingsFromConfig(cfg *config.Config) CookieSettings {
	return CookieSettings{
		Name:   cfg.Session.CookieName,
		Domain: cfg.Session.CookieDomain,
		MaxAge: cfg.Session.TTL,
		Secure: cfg.SecureCookies(),
	}
}

func (s CookieSettings) token(c *gin.Context) string {
	token, err := c.Cookie(s.Name)
	if err != nil {
		return ""
	}
	return token
}

func (s CookieSettings) set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, token, int(s.MaxAge/time.Second), "/", s.Domain, s.Secure, true)
}

func (s CookieSettings) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, "", -1, "/", s.Domain, s.Secure, true)
}
