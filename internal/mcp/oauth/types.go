package oauth

// ProtectedResourceMetadata is the OAuth 2.0 Protected Resource Metadata
// document (RFC 9728) served at /.well-known/oauth-protected-resource.
type ProtectedResourceMetadata struct {
	// Resource is the identifier for the protected resource
	Resource string `json:"resource"`

	// AuthorizationServers lists the authorization servers that can issue
	// tokens for this resource
	AuthorizationServers []string `json:"authorization_servers"`

	// BearerMethodsSupported lists the ways Bearer tokens can be sent (RFC 6750)
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`

	// ScopesSupported lists the scopes understood by this resource
	ScopesSupported []string `json:"scopes_supported,omitempty"`
}

// GoogleUserInfo is the response of Google's userinfo endpoint.
type GoogleUserInfo struct {
	// Sub is the unique Google user ID
	Sub string `json:"sub"`

	// Email is the user's email address
	Email string `json:"email"`

	// EmailVerified indicates if the email is verified
	EmailVerified bool `json:"email_verified"`

	// Name is the user's full name
	Name string `json:"name"`

	// Picture is the URL of the user's profile picture
	Picture string `json:"picture"`
}

// ErrorResponse is an OAuth 2.0 error response body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}
