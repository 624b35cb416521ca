package common

// DefaultAPIRoot is the versioned root every resource endpoint is joined to.
const DefaultAPIRoot = "https://api.appstoreconnect.apple.com/v1"

// TokenAudience is the fixed aud claim the remote service expects.
const TokenAudience = "appstoreconnect-v1"

// AuthorizationHeaderName carries the bearer token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName carries the per-call correlation id.
const RequestIDHeaderName = "X-Request-ID"
