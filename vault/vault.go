package vault

import (
	"fmt"

	"github.com/hashicorp/vault/api"
)

type Vault struct {
	*api.Client
}

// New connects to vault at address and refuses to continue while it is sealed.
func New(token, address string) (*Vault, error) {
	config := &api.Config{
		Address: address,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("new: error initializing vault: %w", err)
	}

	client.SetToken(token)

	status, err := client.Sys().SealStatus()
	if err != nil {
		return nil, fmt.Errorf("new: error getting seal status: %w", err)
	}
	if status.Sealed {
		return nil, fmt.Errorf("new: vault at %s is sealed", address)
	}

	return &Vault{Client: client}, nil
}

// Secret reads a single string field from the secret at path.
func (v *Vault) Secret(path, field string) (string, error) {
	secret, err := v.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("secret: could not read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret: nothing stored at %s", path)
	}

	data := secret.Data
	// kv v2 nests the fields one level down.
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}

	value, ok := data[field].(string)
	if !ok {
		return "", fmt.Errorf("secret: field %s not found at %s", field, path)
	}
	return value, nil
}
