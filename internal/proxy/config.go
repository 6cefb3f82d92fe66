package proxy

import (
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the reverse proxy configuration, loadable from environment
// variables (PROXY_ prefix), flags, or YAML config files.
type Config struct {
	Addr     string `default:"0.0.0.0:80" usage:"HTTP listen address"`
	TLSAddr  string `default:"0.0.0.0:443" usage:"HTTPS listen address" flag:"tls-addr"`
	Upstream string `default:"http://api:8080" usage:"API server base URL requests are forwarded to"`

	StaticDir string `default:"/var/www/static" usage:"Directory served under /static/" flag:"static-dir"`
	MediaDir  string `default:"/var/www/media" usage:"Directory served under /media/" flag:"media-dir"`

	// Domain enables TLS: certificates are obtained from Let's Encrypt for
	// this host and HTTP traffic is redirected to HTTPS. Leave empty for
	// plain HTTP (development).
	Domain       string `usage:"Public domain to obtain TLS certificates for"`
	ACMEEmail    string `usage:"Contact email for the ACME account" flag:"acme-email"`
	CertCacheDir string `default:"/var/cache/certs" usage:"Directory caching issued certificates" flag:"cert-cache-dir"`

	AccessLog AccessLogConfig
}

// AccessLogConfig controls the rotated access log file.
type AccessLogConfig struct {
	Path       string `default:"" usage:"Access log file path; empty logs to the process logger only" flag:"access-log"`
	MaxSizeMB  int    `default:"100" usage:"Rotate after this size" flag:"access-log-max-size"`
	MaxBackups int    `default:"5" usage:"Rotated files to keep" flag:"access-log-max-backups"`
	MaxAgeDays int    `default:"30" usage:"Days to keep rotated files" flag:"access-log-max-age"`
}

// LoadConfig loads the proxy configuration.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PROXY",
		Files:     []string{"proxy.yaml", "/etc/booking/proxy.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.Domain != "" && cfg.ACMEEmail == "" {
		return nil, errors.New("ACME email is required when a domain is set")
	}
	return &cfg, nil
}
