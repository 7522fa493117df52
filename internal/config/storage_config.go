package config

import "strings"

const (
	CredentialStoreFile  = "file"
	CredentialStoreVault = "vault"
)

type StorageConfig interface {
	GetCredentialStore() string
	GetCredentialFile() string
	GetVaultAddr() string
	GetVaultToken() string
	GetVaultPath() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetCredentialStore() string {
	if strings.ToLower(GetEnv("STORYFORGE_CREDENTIAL_STORE", CredentialStoreFile)) == CredentialStoreVault {
		return CredentialStoreVault
	}
	return CredentialStoreFile
}

// GetCredentialFile is the file name, relative to the data folder.
func (Storage) GetCredentialFile() string {
	return GetEnv("STORYFORGE_CREDENTIAL_FILE", "credential.json")
}

func (Storage) GetVaultAddr() string {
	return GetEnv("VAULT_ADDR", "http://127.0.0.1:8200")
}

func (Storage) GetVaultToken() string {
	return GetEnv("VAULT_TOKEN", "")
}

// GetVaultPath is the KV v2 location as "<mount>/<path>".
func (Storage) GetVaultPath() string {
	return GetEnv("STORYFORGE_VAULT_PATH", "secret/storyforge/credential")
}
