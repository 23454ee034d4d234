package mediative

import "time"

// Config holds the Mediative endpoints and credentials.
type Config struct {
	// APIURL is the authentication server base URL, e.g. https://api.omi.tv.
	APIURL string `yaml:"api_url" validate:"required,url" default:"https://api.omi.tv"`

	// HostURL is the tenant base URL that receives media and chunks.
	HostURL string `yaml:"host_url" validate:"required,url"`

	// Domain is the tenant host name sent as the domain / d query parameter.
	Domain string `yaml:"domain" validate:"required"`

	PublicKey  string `yaml:"public_key"  validate:"required"`
	PrivateKey string `yaml:"private_key" validate:"required" mask:"true"`

	// RequestTimeout bounds a single HTTP exchange.
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0" default:"2m"`

	// RenewBefore is how long before expiry the session renews its token.
	RenewBefore time.Duration `yaml:"renew_before" validate:"gte=0" default:"5m"`
}
