package config

import "sync"

// Credentials holds the backend API key for one session. It lives only in
// memory: set once when the session starts and cleared when it ends.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

func (c *Credentials) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the key and whether one is set.
func (c *Credentials) Token() (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.token != ""
}

func (c *Credentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}
