package sessionsvc

// SessionConfig contains configuration parameters for the session store.
type SessionConfig struct {
	// TokenKey is the kv key holding the raw bearer credential
	TokenKey string `env:"TOKEN_KEY" default:"auth_token"`

	// UserKey is the kv key holding the JSON identity
	UserKey string `env:"USER_KEY" default:"user_data"`
}

// DefaultSessionConfig returns the key names the storefront uses.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TokenKey: "auth_token",
		UserKey:  "user_data",
	}
}
