package models

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Connection represents a configured source or destination SCM instance.
type Connection struct {
	ID              string `json:"id"`
	Name            string `json:"name" yaml:"name"`
	Type            string `json:"type" yaml:"type"` // "gitlab", "github", "bitbucket server", "azure devops", ...
	Role            string `json:"role" yaml:"role"` // "source" or "destination"
	Scheme          string `json:"scheme" yaml:"scheme"`
	Host            string `json:"host" yaml:"host"`
	Port            int    `json:"port" yaml:"port"`
	Token           string `json:"token,omitempty" yaml:"token"`
	Insecure        bool   `json:"insecure" yaml:"insecure"`
	CACert          string `json:"ca_cert,omitempty" yaml:"ca_cert"`
	ParentGroupPath string `json:"parent_group_path,omitempty" yaml:"parent_group_path"`
	Version         string `json:"version,omitempty" yaml:"-"`
	Status          string `json:"status" yaml:"-"` // "unknown", "ok", "unreachable", "unauthorized"
}

// BaseURL returns the full base URL for this connection.
func (c *Connection) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}

// MaskedToken returns a placeholder if a token is set.
func (c *Connection) MaskedToken() string {
	if c.Token == "" {
		return ""
	}
	return "••••••••"
}

// Redacted returns a copy safe to hand back over the API.
func (c *Connection) Redacted() Connection {
	cp := *c
	cp.Token = c.MaskedToken()
	return cp
}

// ConnectionStore is an in-memory thread-safe store for connections.
type ConnectionStore struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewConnectionStore creates an empty connection store.
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{conns: make(map[string]*Connection)}
}

// Create adds a new connection, assigning it a UUID.
func (s *ConnectionStore) Create(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New().String()
	if c.Status == "" {
		c.Status = "unknown"
	}
	s.conns[c.ID] = c
}

// Get returns a connection by ID, or nil if not found.
func (s *ConnectionStore) Get(id string) *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conns[id]
}

// ByRole returns the first connection with the given role, or nil.
func (s *ConnectionStore) ByRole(role string) *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conns {
		if c.Role == role {
			return c
		}
	}
	return nil
}

// List returns all connections.
func (s *ConnectionStore) List() []*Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		result = append(result, c)
	}
	return result
}

// Update replaces an existing connection's settings. An empty token keeps
// the stored one so clients can round-trip the redacted form.
func (s *ConnectionStore) Update(c *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.conns[c.ID]
	if !ok {
		return false
	}
	if c.Token == "" || c.Token == old.MaskedToken() {
		c.Token = old.Token
	}
	s.conns[c.ID] = c
	return true
}

// SetStatus records the outcome of the last connectivity test.
func (s *ConnectionStore) SetStatus(id, status, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[id]; ok {
		c.Status = status
		if version != "" {
			c.Version = version
		}
	}
}

// Delete removes a connection by ID.
func (s *ConnectionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[id]; !ok {
		return false
	}
	delete(s.conns, id)
	return true
}
