package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ldapkeys/ldapkeys/pkg/errs"
	log "github.com/sirupsen/logrus"
)

// DefaultConfFile is where the nss/pam LDAP configuration usually lives.
const DefaultConfFile = "/etc/ldap.conf"

// Defaults applied when the file is unreadable or a key is absent.
const (
	defaultHost          = "localhost"
	defaultPort          = 389
	defaultVersion       = 3
	defaultBindTimeout   = 10 * time.Second
	defaultSearchTimeout = 10 * time.Second
	defaultLoginAttr     = "uid"
	defaultFilter        = "objectclass=posixAccount"
	defaultScope         = ScopeSub
)

// Scope selects how deep a directory search descends from the base DN.
type Scope string

const (
	// ScopeBase searches the base DN entry only
	ScopeBase Scope = "base"
	// ScopeOne searches immediate children of the base DN
	ScopeOne Scope = "one"
	// ScopeSub searches the whole subtree under the base DN
	ScopeSub Scope = "sub"
)

func (s Scope) valid() bool {
	return s == ScopeBase || s == ScopeOne || s == ScopeSub
}

// Config is the effective directory configuration for one invocation. It is
// built once by Resolve and never mutated afterwards.
type Config struct {
	URI          string
	Base         string
	BindDN       string
	BindPW       string
	Version      int
	LoginAttr    string
	Filter       string
	Scope        Scope
	TLSCACertDir string

	BindTimeout   time.Duration
	SearchTimeout time.Duration
}

// Overrides are caller-supplied values that unconditionally replace the
// corresponding file-resolved fields.
type Overrides struct {
	URI    string
	Base   string
	BindDN string
}

// Resolve parses the configuration file at path, fills every missing field
// with its default and applies the caller overrides. An unreadable file is a
// notice, not an error: resolution proceeds with defaults. The result is
// rejected only when the URI or base DN remain empty, or the scope is not one
// of base, one or sub.
func Resolve(path string, over Overrides) (*Config, error) {
	vals, err := ParseFile(path)
	if err != nil {
		log.Warnf("could not read config at %s, continuing with defaults", path)
		vals = map[string]string{}
	}

	conf := &Config{
		URI:           resolveURI(vals),
		Base:          resolveBase(vals),
		BindDN:        vals["binddn"],
		BindPW:        vals["bindpw"],
		Version:       intValue(vals, "ldap_version", defaultVersion),
		LoginAttr:     stringValue(vals, "pam_login_attribute", defaultLoginAttr),
		Filter:        stringValue(vals, "pam_filter", defaultFilter),
		Scope:         Scope(strings.ToLower(stringValue(vals, "scope", string(defaultScope)))),
		TLSCACertDir:  vals["tls_cacertdir"],
		BindTimeout:   secondsValue(vals, "bind_timelimit", defaultBindTimeout),
		SearchTimeout: secondsValue(vals, "timelimit", defaultSearchTimeout),
	}

	if over.URI != "" {
		conf.URI = over.URI
	}
	if over.Base != "" {
		conf.Base = over.Base
	}
	if over.BindDN != "" {
		// the file password belongs to the file DN, never to the override
		conf.BindDN = over.BindDN
		conf.BindPW = ""
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) validate() error {
	if c.URI == "" {
		return errs.New(errs.ConfigInvalid, "no server URI provided")
	}
	if c.Base == "" {
		return errs.New(errs.ConfigInvalid, "no base DN provided, check your configuration")
	}
	if !c.Scope.valid() {
		return errs.New(errs.ConfigInvalid, "invalid search scope %q, expected base, one or sub", string(c.Scope))
	}
	return nil
}

// resolveURI prefers an explicit uri key; a multi-valued uri is cut down to
// its first server. Without one, host and port combine into an ldap:// URI.
func resolveURI(vals map[string]string) string {
	if uri, ok := vals["uri"]; ok {
		return strings.Fields(uri)[0]
	}
	host := stringValue(vals, "host", defaultHost)
	port := intValue(vals, "port", defaultPort)
	return fmt.Sprintf("ldap://%s:%d", host, port)
}

// resolveBase gives nss_base_passwd priority over the plain base key. The
// nss value may carry a trailing ?scope query suffix which is not part of
// the DN.
func resolveBase(vals map[string]string) string {
	if v, ok := vals["nss_base_passwd"]; ok {
		if i := strings.Index(v, "?"); i >= 0 {
			v = v[:i]
		}
		return v
	}
	return vals["base"]
}

func stringValue(vals map[string]string, key, def string) string {
	if v, ok := vals[key]; ok {
		return v
	}
	return def
}

func intValue(vals map[string]string, key string, def int) int {
	v, ok := vals[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("ignoring %s value %q: not a number", key, v)
		return def
	}
	return n
}

func secondsValue(vals map[string]string, key string, def time.Duration) time.Duration {
	return time.Duration(intValue(vals, key, int(def/time.Second))) * time.Second
}
