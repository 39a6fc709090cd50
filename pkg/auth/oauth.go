package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"github.com/foodle-app/foodle/config"
	"github.com/foodle-app/foodle/pkg/logger"
)

// ExternalUser is what a provider tells us about the person signing in.
type ExternalUser struct {
	Provider  string
	UserID    string
	Email     string
	Name      string
	AvatarURL string
}

// SetupProviders installs the cookie store gothic keeps OAuth state in and
// registers every provider with credentials. It returns the provider names.
func SetupProviders() []string {
	store := sessions.NewCookieStore([]byte(config.SessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   config.AppEnv() == "production",
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	var names []string
	if id, sec := config.GoogleClientID(), config.GoogleClientSecret(); id != "" && sec != "" {
		goth.UseProviders(google.New(id, sec, config.OAuthCallbackURL("google"), "email", "profile"))
		names = append(names, "google")
	}

	if len(names) == 0 {
		logger.Warn("auth: no OAuth provider configured")
	} else {
		logger.Info("auth: OAuth providers enabled", "providers", names)
	}
	return names
}

// BeginAuth redirects to provider's consent page.
func BeginAuth(w http.ResponseWriter, r *http.Request, provider string) {
	gothic.BeginAuthHandler(w, gothic.GetContextWithProvider(r, provider))
}

// CompleteAuth finishes the callback and ends the temporary OAuth session.
func CompleteAuth(w http.ResponseWriter, r *http.Request, provider string) (ExternalUser, error) {
	r = gothic.GetContextWithProvider(r, provider)
	u, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		return ExternalUser{}, err
	}
	_ = gothic.Logout(w, r)

	name := u.Name
	if name == "" {
		name = u.NickName
	}
	return ExternalUser{
		Provider:  u.Provider,
		UserID:    u.UserID,
		Email:     u.Email,
		Name:      name,
		AvatarURL: u.AvatarURL,
	}, nil
}
