// Package cliconfig manages hodeictl's local context file: the server
// URL, the session token, and the username saved after login, grounded
// on the teacher's cmd/noisefs-config (GetDefaultConfigPath under the
// user's home directory, SaveToFile/LoadConfig as JSON) but scoped down
// to the three fields a CLI session actually needs.
package cliconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Context is the CLI's persisted session state.
type Context struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`
	Username  string `json:"username"`
}

// DefaultPath returns ~/.hodeictl/config.json, creating the directory if
// it doesn't exist.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".hodeictl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the context from path, returning an empty Context if the
// file does not yet exist.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Context{}, nil
		}
		return nil, err
	}
	var ctx Context
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, err
	}
	return &ctx, nil
}

// Save writes ctx to path as indented JSON, readable only by the owner
// since it carries a session token.
func (c *Context) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
