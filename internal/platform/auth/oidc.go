package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const discoveryPath = "/.well-known/openid-configuration"

var discoveryClient = &http.Client{Timeout: 10 * time.Second}

// OIDCProvider holds the discovery fields needed to find the identity
// provider's signing keys.
type OIDCProvider struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// DiscoverOIDC reads the issuer's discovery document. The document must name
// the same issuer it was fetched from and carry a jwks_uri.
func DiscoverOIDC(ctx context.Context, issuerURL string) (*OIDCProvider, error) {
	issuer := strings.TrimRight(issuerURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuer+discoveryPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := discoveryClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch discovery document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint %s returned %d", issuer, resp.StatusCode)
	}

	var p OIDCProvider
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode discovery document: %w", err)
	}
	switch {
	case p.JWKSURI == "":
		return nil, fmt.Errorf("discovery document for %s has no jwks_uri", issuer)
	case p.Issuer != "" && strings.TrimRight(p.Issuer, "/") != issuer:
		return nil, fmt.Errorf("discovery document issuer %q does not match %q", p.Issuer, issuer)
	}
	return &p, nil
}
