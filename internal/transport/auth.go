package transport

// Auth is the request signing strategy. The set of implementations is closed:
// NoAuth, BasicAuth and SessionAuth.
type Auth interface {
	authMethod() string
}

// NoAuth sends requests without credentials.
type NoAuth struct{}

// BasicAuth signs requests with HTTP basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// SessionAuth signs requests with a Redfish session token.
type SessionAuth struct {
	Token string
}

func (NoAuth) authMethod() string      { return "none" }
func (BasicAuth) authMethod() string   { return "basic" }
func (SessionAuth) authMethod() string { return "session" }
