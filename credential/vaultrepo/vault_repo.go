// Package vaultrepo persists the credential in a Vault KV v2 secret.
package vaultrepo

import (
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/jrsteele09/storyforge/credential"
)

const (
	accessTokenKey  = "accessToken"
	refreshTokenKey = "refreshToken"
)

var _ credential.Repo = (*VaultRepo)(nil)

type VaultRepo struct {
	client *api.Client
	mount  string
	path   string
}

// New connects to Vault at addr. location is "<mount>/<path>", e.g.
// "secret/storyforge/credential".
func New(addr, token, location string) (*VaultRepo, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("[vaultrepo New] create client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}
	return NewWithClient(client, location)
}

func NewWithClient(client *api.Client, location string) (*VaultRepo, error) {
	mount, path, ok := strings.Cut(strings.Trim(location, "/"), "/")
	if !ok || mount == "" || path == "" {
		return nil, fmt.Errorf("[vaultrepo New] location %q must be <mount>/<path>", location)
	}
	return &VaultRepo{client: client, mount: mount, path: path}, nil
}

func (r *VaultRepo) dataPath() string {
	return r.mount + "/data/" + r.path
}

func (r *VaultRepo) metadataPath() string {
	return r.mount + "/metadata/" + r.path
}

func (r *VaultRepo) Load() (*credential.Credential, error) {
	secret, err := r.client.Logical().Read(r.dataPath())
	if err != nil {
		return nil, fmt.Errorf("[vaultrepo Load] read %s: %w", r.dataPath(), err)
	}
	if secret == nil || secret.Data == nil {
		return nil, credential.ErrNotFound
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, credential.ErrNotFound
	}

	access, _ := data[accessTokenKey].(string)
	refresh, _ := data[refreshTokenKey].(string)
	if access == "" && refresh == "" {
		return nil, credential.ErrNotFound
	}
	return credential.New(access, refresh), nil
}

func (r *VaultRepo) Save(c *credential.Credential) error {
	_, err := r.client.Logical().Write(r.dataPath(), map[string]interface{}{
		"data": map[string]interface{}{
			accessTokenKey:  c.AccessToken,
			refreshTokenKey: c.RefreshToken,
		},
	})
	if err != nil {
		return fmt.Errorf("[vaultrepo Save] write %s: %w", r.dataPath(), err)
	}
	return nil
}

// Delete removes every version of the secret, not just the latest.
func (r *VaultRepo) Delete() error {
	if _, err := r.client.Logical().Delete(r.metadataPath()); err != nil {
		return fmt.Errorf("[vaultrepo Delete] delete %s: %w", r.metadataPath(), err)
	}
	return nil
}
