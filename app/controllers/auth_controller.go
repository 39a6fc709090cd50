package controllers

import (
	"net/http"
	"net/url"

	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/config"
	"github.com/foodle-app/foodle/pkg/auth"
	"github.com/foodle-app/foodle/pkg/ctx"
	"github.com/foodle-app/foodle/pkg/logger"
)

type AuthController struct {
	service   *services.AuthService
	providers map[string]bool
}

// NewAuthController serves sign-in for the given external providers.
func NewAuthController(service *services.AuthService, providers []string) *AuthController {
	enabled := make(map[string]bool, len(providers))
	for _, p := range providers {
		enabled[p] = true
	}
	return &AuthController{service: service, providers: enabled}
}

type signupInput struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (a *AuthController) Signup(c *ctx.Context) {
	var in signupInput
	if !c.BindJSON(&in) {
		return
	}
	session, err := a.service.Signup(c.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(session)
}

func (a *AuthController) Login(c *ctx.Context) {
	var in loginInput
	if !c.BindJSON(&in) {
		return
	}
	session, err := a.service.Login(c.Context(), in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(session)
}

// VendorLogin is the vendor portal's sign-in. Students are turned away
// without a token.
func (a *AuthController) VendorLogin(c *ctx.Context) {
	var in loginInput
	if !c.BindJSON(&in) {
		return
	}
	session, err := a.service.VendorLogin(c.Context(), in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(session)
}

func (a *AuthController) Session(c *ctx.Context) {
	session, err := a.service.Current(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(session)
}

func (a *AuthController) Logout(c *ctx.Context) {
	claims, ok := c.Claims()
	if !ok {
		c.Unauthorized()
		return
	}
	if err := a.service.Logout(c.Context(), claims); err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]string{"message": "Signed out"})
}

// Provider redirects to the external provider's consent page.
func (a *AuthController) Provider(c *ctx.Context) {
	provider := c.Param("provider")
	if !a.providers[provider] {
		c.NotFound("Unknown sign-in provider")
		return
	}
	auth.BeginAuth(c.W, c.R, provider)
}

// Callback finishes external sign-in and hands the session to the web
// client through the URL fragment.
func (a *AuthController) Callback(c *ctx.Context) {
	provider := c.Param("provider")
	if !a.providers[provider] {
		c.NotFound("Unknown sign-in provider")
		return
	}
	ext, err := auth.CompleteAuth(c.W, c.R, provider)
	if err != nil {
		logger.WithCtx(c.Context()).Warn("auth: provider callback failed", "provider", provider, "error", err)
		c.Unauthorized("Sign-in was not completed")
		return
	}
	session, err := a.service.ExternalLogin(c.Context(), ext)
	if err != nil {
		fail(c, err)
		return
	}

	if c.Query("mode") == "json" {
		c.Success(session)
		return
	}
	frag := url.Values{"token": {session.Token}, "redirect": {session.Redirect}}
	c.Redirect(http.StatusFound, config.AppURL()+"/auth/callback#"+frag.Encode())
}
