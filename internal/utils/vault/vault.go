package vault

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
)

const k8sTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// Client reads runtime secrets (signing keys, wallet seeds) from a
// HashiCorp Vault KV v2 store, authenticating with the pod's Kubernetes
// service account.
type Client struct {
	addr         string
	kvSecretPath string
	role         string
	token        string

	http *resty.Client
}

func New(addr, kvSecretPath, role string) (*Client, error) {
	c := &Client{
		addr:         addr,
		kvSecretPath: kvSecretPath,
		role:         role,
		http:         resty.New(),
	}

	token, err := c.login()
	if err != nil {
		return nil, err
	}
	c.token = token
	return c, nil
}

func (c *Client) login() (string, error) {
	k8sToken, err := os.ReadFile(k8sTokenPath)
	if err != nil {
		return "", fmt.Errorf("failed to read service account token: %v", err)
	}

	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"jwt":  string(k8sToken),
			"role": c.role,
		}).
		Post(fmt.Sprintf("%s/v1/auth/kubernetes/login", c.addr))
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault authentication failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var result struct {
		Errors []string `json:"errors"`
		Auth   *struct {
			ClientToken string `json:"client_token"`
		} `json:"auth"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse vault response: %v", err)
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("vault authentication error: %v", result.Errors)
	}
	if result.Auth == nil || result.Auth.ClientToken == "" {
		return "", fmt.Errorf("vault response missing client token")
	}

	return result.Auth.ClientToken, nil
}

// GetKV reads one key from the configured KV v2 secret path.
func (c *Client) GetKV(secretKey string) (string, error) {
	resp, err := c.http.R().
		SetHeader("X-Vault-Token", c.token).
		Get(fmt.Sprintf("%s/v1/%s", c.addr, c.kvSecretPath))
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault KV get failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var result struct {
		Errors []string `json:"errors"`
		Data   *struct {
			Data map[string]any `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse vault response: %v", err)
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("vault KV get error: %v", result.Errors)
	}
	if result.Data == nil || result.Data.Data == nil {
		return "", fmt.Errorf("vault response missing secret data")
	}

	raw, ok := result.Data.Data[secretKey]
	if !ok {
		return "", fmt.Errorf("secret key %q not found", secretKey)
	}
	secret, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key %q is not a string", secretKey)
	}

	return secret, nil
}
