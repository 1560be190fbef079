package tokensource

import "golang.org/x/oauth2"

// ClientID is the OAuth2 client id registered for Claude client applications.
const ClientID = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"

// RedirectURL is the out-of-band callback page that displays the
// authorization code for manual copy-paste.
const RedirectURL = "https://console.anthropic.com/oauth/code/callback"

// Endpoint is Anthropic's OAuth2 endpoint pair. Authorization happens on
// claude.ai; token exchange and refresh on the console API.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://claude.ai/oauth/authorize",
	TokenURL: "https://console.anthropic.com/v1/oauth/token",
}

var scopes = []string{"org:create_api_key", "user:profile", "user:inference"}
