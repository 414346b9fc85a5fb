// Package directory speaks LDAP to the user directory.
package directory

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"

	ldap "github.com/go-ldap/ldap/v3"
	"github.com/ldapkeys/ldapkeys/pkg/config"
	"github.com/ldapkeys/ldapkeys/pkg/errs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Result codes the layers above react to.
const (
	ResultNoSuchAttribute        uint16 = ldap.LDAPResultNoSuchAttribute
	ResultUndefinedAttributeType uint16 = ldap.LDAPResultUndefinedAttributeType
	ResultAttributeOrValueExists uint16 = ldap.LDAPResultAttributeOrValueExists
	ResultObjectClassViolation   uint16 = ldap.LDAPResultObjectClassViolation
)

// IsResult reports whether err carries the given LDAP result code.
func IsResult(err error, code uint16) bool {
	return ldap.IsErrorWithCode(err, code)
}

// Op selects the kind of attribute modification to apply.
type Op int

const (
	// OpAdd adds values to an attribute
	OpAdd Op = iota
	// OpDelete removes values from an attribute
	OpDelete
)

// Change is a single attribute modification.
type Change struct {
	Op     Op
	Attr   string
	Values []string
}

// Session is a connection to one directory server. Zero I/O happens until
// Connect.
type Session struct {
	conf *config.Config
	conn *ldap.Conn
}

// New returns a session for the given configuration.
func New(conf *config.Config) *Session {
	return &Session{conf: conf}
}

// Connect dials the configured server and, when the configuration carries
// both a bind DN and a password, authenticates with them. ldaps URIs
// verify the server against the trust store set up by InitTLSCACertDir,
// falling back to the system roots.
func (s *Session) Connect() error {
	opts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: s.conf.BindTimeout}),
	}
	if u, err := url.Parse(s.conf.URI); err == nil && u.Scheme == "ldaps" {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{
			ServerName: u.Hostname(),
			RootCAs:    trustedRoots(),
		}))
	}

	if s.conf.Version != 3 {
		log.Debugf("ldap_version %d configured, client speaks protocol version 3", s.conf.Version)
	}
	log.Debugf("connecting to %s", s.conf.URI)
	conn, err := ldap.DialURL(s.conf.URI, opts...)
	if err != nil {
		return errs.Wrap(err, errs.ConnectionFailed, "could not connect to %s", s.conf.URI)
	}
	conn.SetTimeout(s.conf.SearchTimeout)
	s.conn = conn

	if s.conf.BindDN != "" && s.conf.BindPW != "" {
		if err := s.Bind(s.conf.BindDN, s.conf.BindPW); err != nil {
			s.Close()
			return err
		}
	}
	return nil
}

// Bind authenticates as dn. An empty dn performs an anonymous bind.
func (s *Session) Bind(dn, password string) error {
	log.Debugf("binding as %q", dn)
	var err error
	if dn == "" {
		err = s.conn.UnauthenticatedBind("")
	} else {
		err = s.conn.Bind(dn, password)
	}
	switch {
	case err == nil:
		return nil
	case ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials):
		return errs.Wrap(err, errs.InvalidCredentials, "could not authenticate as %s", dn)
	case ldap.IsErrorWithCode(err, ldap.ErrorNetwork):
		return errs.Wrap(err, errs.ConnectionFailed, "lost connection to %s", s.conf.URI)
	default:
		return errors.Wrapf(err, "bind as %s failed", dn)
	}
}

// FindDNByLogin resolves login to an entry DN under the configured base.
// The login value is filter-escaped, so no filter syntax can be smuggled
// in through a user name. When several entries match, the first one wins.
func (s *Session) FindDNByLogin(login string) (string, error) {
	filter := s.loginFilter(login)
	req := ldap.NewSearchRequest(
		s.conf.Base,
		ldapScope(s.conf.Scope),
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		[]string{"1.1"}, // DNs only
		nil,
	)

	log.Debugf("searching %s scope %s with %s", s.conf.Base, s.conf.Scope, filter)
	res, err := s.conn.Search(req)
	switch {
	case err == nil:
	case ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
		return "", errs.Wrap(err, errs.UserNotFound, "no entry for %s under %s", login, s.conf.Base)
	case ldap.IsErrorWithCode(err, ldap.ErrorNetwork):
		return "", errs.Wrap(err, errs.ConnectionFailed, "lost connection to %s", s.conf.URI)
	default:
		return "", errors.Wrapf(err, "search for %s failed", login)
	}

	if len(res.Entries) == 0 {
		return "", errs.New(errs.UserNotFound, "no such user %s", login)
	}
	if len(res.Entries) > 1 {
		log.Debugf("%d entries match %s, using %s", len(res.Entries), login, res.Entries[0].DN)
	}
	return res.Entries[0].DN, nil
}

// ReadKeys returns the values of attr on the entry at dn. An absent
// attribute is an empty list, not an error.
func (s *Session) ReadKeys(dn, attr string) ([]string, error) {
	req := ldap.NewSearchRequest(
		dn,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectclass=*)",
		[]string{attr},
		nil,
	)

	res, err := s.conn.Search(req)
	switch {
	case err == nil:
	case ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
		return nil, errs.Wrap(err, errs.UserNotFound, "no entry at %s", dn)
	case ldap.IsErrorWithCode(err, ldap.ErrorNetwork):
		return nil, errs.Wrap(err, errs.ConnectionFailed, "lost connection to %s", s.conf.URI)
	default:
		return nil, errors.Wrapf(err, "could not read %s from %s", attr, dn)
	}

	if len(res.Entries) == 0 {
		return nil, nil
	}
	return res.Entries[0].GetAttributeValues(attr), nil
}

// Modify applies changes to the entry at dn in a single request. LDAP
// result codes are preserved for callers to inspect with IsResult.
func (s *Session) Modify(dn string, changes []Change) error {
	err := s.conn.Modify(modifyRequest(dn, changes))
	if err != nil && ldap.IsErrorWithCode(err, ldap.ErrorNetwork) {
		return errs.Wrap(err, errs.ConnectionFailed, "lost connection to %s", s.conf.URI)
	}
	return err
}

// Close tears the connection down. Safe to call before Connect and more
// than once.
func (s *Session) Close() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		log.WithError(err).Debug("error closing directory connection")
	}
	s.conn = nil
}

func (s *Session) loginFilter(login string) string {
	filter := s.conf.Filter
	if !strings.HasPrefix(filter, "(") {
		filter = "(" + filter + ")"
	}
	return fmt.Sprintf("(&%s(%s=%s))", filter, s.conf.LoginAttr, ldap.EscapeFilter(login))
}

func modifyRequest(dn string, changes []Change) *ldap.ModifyRequest {
	req := ldap.NewModifyRequest(dn, nil)
	for _, c := range changes {
		switch c.Op {
		case OpAdd:
			req.Add(c.Attr, c.Values)
		case OpDelete:
			req.Delete(c.Attr, c.Values)
		}
	}
	return req
}

func ldapScope(scope config.Scope) int {
	switch scope {
	case config.ScopeBase:
		return ldap.ScopeBaseObject
	case config.ScopeOne:
		return ldap.ScopeSingleLevel
	default:
		return ldap.ScopeWholeSubtree
	}
}
