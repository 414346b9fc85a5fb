package directory

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ldap "github.com/go-ldap/ldap/v3"
	"github.com/ldapkeys/ldapkeys/pkg/config"
	"github.com/ldapkeys/ldapkeys/pkg/errs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type TestSuite struct {
	suite.Suite

	loggerHook *test.Hook
}

// openssl req -x509 -newkey ed25519 -nodes -subj "/CN=ldapkeys test CA"
const testCACert = `-----BEGIN CERTIFICATE-----
MIIBSjCB/aADAgECAhRWw9sc9RHUI2rHnHm6U43796CNlzAFBgMrZXAwGzEZMBcG
A1UEAwwQbGRhcGtleXMgdGVzdCBDQTAeFw0yNjA4MjMyMzQ2MjVaFw0zNjA4MjAy
MzQ2MjVaMBsxGTAXBgNVBAMMEGxkYXBrZXlzIHRlc3QgQ0EwKjAFBgMrZXADIQCD
/aVCMqOCQ7KFiSeGBSfqv01wqttwR/KF8B0ztKmUgqNTMFEwHQYDVR0OBBYEFGNj
iIOpm8g6+kn12KihvyHhWeHkMB8GA1UdIwQYMBaAFGNjiIOpm8g6+kn12KihvyHh
WeHkMA8GA1UdEwEB/wQFMAMBAf8wBQYDK2VwA0EAgzP/Hp9pWQHZ7F7/ThZAnqX9
kNphclg6PFDZNmY3tn6VdSBUB+F4vmBT2OD4l0QzCUuYxlHqvk8S2nihkJvaBA==
-----END CERTIFICATE-----
`

func resetTrustStore() {
	tlsMu.Lock()
	defer tlsMu.Unlock()
	tlsDir = ""
	tlsRoots = nil
}

// cleanup
func (ts *TestSuite) TearDownTest() {
	resetTrustStore()
	ts.loggerHook.Reset()
}

func testConf() *config.Config {
	return &config.Config{
		URI:           "ldap://localhost:389",
		Base:          "dc=example,dc=com",
		Version:       3,
		LoginAttr:     "uid",
		Filter:        "objectclass=posixAccount",
		Scope:         config.ScopeSub,
		BindTimeout:   time.Second,
		SearchTimeout: time.Second,
	}
}

// tests
// -----
func (ts *TestSuite) TestCloseBeforeConnect() {
	s := New(testConf())
	s.Close()
	s.Close()
}

func (ts *TestSuite) TestConnectRefused() {
	t := ts.T()
	a := assert.New(t)

	// grab a port nothing listens on
	l, err := net.Listen("tcp", "127.0.0.1:0")
	a.Nil(err)
	addr := l.Addr().String()
	a.Nil(l.Close())

	conf := testConf()
	conf.URI = "ldap://" + addr

	s := New(conf)
	defer s.Close()
	err = s.Connect()
	a.NotNil(err)
	a.True(errs.IsKind(err, errs.ConnectionFailed))
	a.Equal(errs.ExitConn, errs.ExitCode(err))
	a.Contains(err.Error(), addr)
}

func (ts *TestSuite) TestConnectBadScheme() {
	t := ts.T()
	a := assert.New(t)

	conf := testConf()
	conf.URI = "bogus://localhost"

	s := New(conf)
	defer s.Close()
	err := s.Connect()
	a.NotNil(err)
	a.True(errs.IsKind(err, errs.ConnectionFailed))
}

func (ts *TestSuite) TestLoginFilter() {
	t := ts.T()
	a := assert.New(t)

	s := New(testConf())
	a.Equal("(&(objectclass=posixAccount)(uid=alice))", s.loginFilter("alice"))
}

func (ts *TestSuite) TestLoginFilterKeepsParens() {
	t := ts.T()
	a := assert.New(t)

	conf := testConf()
	conf.Filter = "(objectClass=*)"
	conf.LoginAttr = "mail"

	s := New(conf)
	a.Equal("(&(objectClass=*)(mail=alice))", s.loginFilter("alice"))
}

func (ts *TestSuite) TestLoginFilterEscapesLogin() {
	t := ts.T()
	a := assert.New(t)

	s := New(testConf())
	a.Equal(
		`(&(objectclass=posixAccount)(uid=e\2avil\28user\29))`,
		s.loginFilter("e*vil(user)"),
	)
}

func (ts *TestSuite) TestScopeMapping() {
	t := ts.T()
	a := assert.New(t)

	a.Equal(ldap.ScopeBaseObject, ldapScope(config.ScopeBase))
	a.Equal(ldap.ScopeSingleLevel, ldapScope(config.ScopeOne))
	a.Equal(ldap.ScopeWholeSubtree, ldapScope(config.ScopeSub))
}

func (ts *TestSuite) TestModifyRequestConversion() {
	t := ts.T()
	a := assert.New(t)

	req := modifyRequest("uid=alice,ou=People,dc=example,dc=com", []Change{
		{Op: OpAdd, Attr: "objectClass", Values: []string{"ldapPublicKey"}},
		{Op: OpDelete, Attr: "sshPublicKey", Values: []string{"ssh-ed25519 AAAA"}},
	})

	a.Equal("uid=alice,ou=People,dc=example,dc=com", req.DN)
	a.Len(req.Changes, 2)
	a.Equal(uint(ldap.AddAttribute), req.Changes[0].Operation)
	a.Equal("objectClass", req.Changes[0].Modification.Type)
	a.Equal([]string{"ldapPublicKey"}, req.Changes[0].Modification.Vals)
	a.Equal(uint(ldap.DeleteAttribute), req.Changes[1].Operation)
	a.Equal("sshPublicKey", req.Changes[1].Modification.Type)
	a.Equal([]string{"ssh-ed25519 AAAA"}, req.Changes[1].Modification.Vals)
}

func (ts *TestSuite) TestIsResultThroughWrapping() {
	t := ts.T()
	a := assert.New(t)

	cause := ldap.NewError(ldap.LDAPResultObjectClassViolation, errors.New("boom"))
	a.True(IsResult(cause, ResultObjectClassViolation))
	a.False(IsResult(cause, ResultNoSuchAttribute))

	wrapped := errors.Wrap(cause, "while modifying")
	a.True(IsResult(wrapped, ResultObjectClassViolation))

	domain := errs.Wrap(cause, errs.KeyAlreadyExists, "key already there")
	a.True(IsResult(domain, ResultObjectClassViolation))

	a.False(IsResult(nil, ResultObjectClassViolation))
	a.False(IsResult(errors.New("plain"), ResultObjectClassViolation))
}

func (ts *TestSuite) TestTrustStoreInitOnce() {
	t := ts.T()
	a := assert.New(t)

	dir := t.TempDir()
	a.Nil(os.WriteFile(filepath.Join(dir, "ca.pem"), []byte(testCACert), 0644))

	a.Nil(InitTLSCACertDir(dir))
	a.NotNil(trustedRoots())

	// same directory again is fine
	a.Nil(InitTLSCACertDir(dir))

	// a different one is not
	err := InitTLSCACertDir(t.TempDir())
	a.NotNil(err)
	a.Contains(err.Error(), "already set")
}

func (ts *TestSuite) TestTrustStoreEmptyDirIsNoop() {
	t := ts.T()
	a := assert.New(t)

	a.Nil(InitTLSCACertDir(""))
	a.Nil(trustedRoots())
}

func (ts *TestSuite) TestTrustStoreMissingDir() {
	t := ts.T()
	a := assert.New(t)

	err := InitTLSCACertDir(filepath.Join(t.TempDir(), "nope"))
	a.NotNil(err)
	a.Contains(err.Error(), "could not read CA certificate directory")
}

func (ts *TestSuite) TestTrustStoreWarnsOnGarbage() {
	t := ts.T()
	a := assert.New(t)

	dir := t.TempDir()
	a.Nil(os.WriteFile(filepath.Join(dir, "junk.pem"), []byte("not a certificate"), 0644))

	a.Nil(InitTLSCACertDir(dir))
	a.NotNil(trustedRoots())

	found := false
	for _, entry := range ts.loggerHook.AllEntries() {
		found = found || strings.Contains(entry.Message, "no usable certificates")
	}
	a.True(found)
}

func TestDirectorySuite(t *testing.T) {
	ts := &TestSuite{
		loggerHook: test.NewGlobal(),
	}
	suite.Run(t, ts)
}
