package slack

import "fmt"

// APIError is returned when Slack answers with "ok": false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

type envelope struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// OAuthResponse is the payload of oauth.v2.access for both the code exchange
// and the refresh_token grant.
type OAuthResponse struct {
	Ok           bool       `json:"ok"`
	Error        string     `json:"error,omitempty"`
	AppID        string     `json:"app_id"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresIn    int64      `json:"expires_in,omitempty"`
	TokenType    string     `json:"token_type"`
	Scope        string     `json:"scope"`
	BotUserID    string     `json:"bot_user_id"`
	Team         Team       `json:"team"`
	AuthedUser   AuthedUser `json:"authed_user"`
}

type AuthedUser struct {
	ID           string `json:"id"`
	Scope        string `json:"scope,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type postMessageResponse struct {
	envelope
	Channel string `json:"channel"`
	Ts      string `json:"ts"`
}

// Channel is the subset of a conversations.list entry the UI needs.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsChannel  bool   `json:"is_channel"`
	IsGroup    bool   `json:"is_group"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
	IsMember   bool   `json:"is_member"`
	NumMembers int    `json:"num_members"`
}

type conversationsListResponse struct {
	envelope
	Channels []Channel `json:"channels"`
}

type AuthTestResponse struct {
	Ok     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	URL    string `json:"url"`
	Team   string `json:"team"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
	BotID  string `json:"bot_id,omitempty"`
}
