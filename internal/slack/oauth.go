package slack

import (
	"strings"

	"golang.org/x/oauth2"
)

const (
	DefaultAuthorizeURL = "https://slack.com/oauth/v2/authorize"
	CallbackPath        = "/api/auth/slack/callback"
)

var (
	DefaultBotScopes  = []string{"chat:write", "channels:read", "groups:read", "mpim:read", "im:read"}
	DefaultUserScopes = []string{"chat:write"}
)

// Installer builds the "Add to Slack" authorize URL.
type Installer struct {
	config     *oauth2.Config
	botScopes  []string
	userScopes []string
}

func NewInstaller(clientID, clientSecret, authorizeURL, apiURL, baseURL string) *Installer {
	if authorizeURL == "" {
		authorizeURL = DefaultAuthorizeURL
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Installer{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authorizeURL,
				TokenURL:  strings.TrimRight(apiURL, "/") + "/" + methodOAuthAccess,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: RedirectURI(baseURL),
		},
		botScopes:  DefaultBotScopes,
		userScopes: DefaultUserScopes,
	}
}

// RedirectURI is the callback Slack sends the user back to.
func RedirectURI(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + CallbackPath
}

// InstallURL returns the authorize URL carrying state. Slack expects comma
// separated scopes, so they are set as raw parameters rather than through
// oauth2.Config.Scopes, which joins with spaces.
func (i *Installer) InstallURL(state string) string {
	return i.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("scope", strings.Join(i.botScopes, ",")),
		oauth2.SetAuthURLParam("user_scope", strings.Join(i.userScopes, ",")),
	)
}

// RedirectURL returns the configured callback URL.
func (i *Installer) RedirectURL() string {
	return i.config.RedirectURL
}
