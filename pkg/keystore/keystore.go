// Package keystore manages the OpenSSH public keys stored on directory
// user entries.
package keystore

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/ldapkeys/ldapkeys/pkg/directory"
	"github.com/ldapkeys/ldapkeys/pkg/errs"
	"github.com/ldapkeys/ldapkeys/pkg/pubkey"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// pubkeyAttr holds one OpenSSH public key per value, as defined by
	// the openssh-lpk schema.
	pubkeyAttr = "sshPublicKey"
	// pubkeyClass is the auxiliary object class that allows pubkeyAttr
	// on an entry.
	pubkeyClass     = "ldapPublicKey"
	objectClassAttr = "objectClass"
)

// Directory is the slice of a directory session the store needs.
type Directory interface {
	Bind(dn, password string) error
	FindDNByLogin(login string) (string, error)
	ReadKeys(dn, attr string) ([]string, error)
	Modify(dn string, changes []directory.Change) error
}

// Store manages the public keys of directory users.
type Store struct {
	dir Directory
}

// New returns a store backed by dir.
func New(dir Directory) *Store {
	return &Store{dir: dir}
}

// List returns the keys stored for login, verbatim.
func (s *Store) List(login string) ([]string, error) {
	dn, err := s.dir.FindDNByLogin(login)
	if err != nil {
		return nil, err
	}
	return s.dir.ReadKeys(dn, pubkeyAttr)
}

// Add stores key on login's entry. A non-empty bindPassword re-binds as
// the user first (self service); when empty the session's current bind
// must already have write access. A key whose material is already
// present is rejected no matter what its comment says.
func (s *Store) Add(login, key, bindPassword string) error {
	if !pubkey.IsValid(key) {
		return errs.New(errs.KeyInvalid, "not a valid OpenSSH public key: %q", keyLabel(key))
	}

	dn, err := s.dir.FindDNByLogin(login)
	if err != nil {
		return err
	}
	if bindPassword != "" {
		if err := s.dir.Bind(dn, bindPassword); err != nil {
			return err
		}
	}

	existing, err := s.dir.ReadKeys(dn, pubkeyAttr)
	if err != nil {
		return err
	}
	for _, have := range existing {
		if pubkey.SameKey(have, key) {
			return errs.New(errs.KeyAlreadyExists, "key %s is already present for %s", keyLabel(key), login)
		}
	}

	err = s.modifyWithBackfill(dn, directory.Change{Op: directory.OpAdd, Attr: pubkeyAttr, Values: []string{key}})
	switch {
	case err == nil:
		log.Debugf("added key %s to %s", keyLabel(key), dn)
		return nil
	case directory.IsResult(err, directory.ResultUndefinedAttributeType):
		return errs.Wrap(err, errs.SchemaAttributeUndefined, "directory schema does not define attribute %s", pubkeyAttr)
	case directory.IsResult(err, directory.ResultAttributeOrValueExists):
		return errs.Wrap(err, errs.KeyAlreadyExists, "key %s is already present for %s", keyLabel(key), login)
	default:
		return errors.Wrapf(err, "could not add key for %s", login)
	}
}

// RemoveByPattern deletes every key of login whose text contains pattern
// and returns the keys actually removed. Removal is per key: one failing
// key does not stop the rest, and failures come back aggregated after
// the batch. Zero matches is not an error.
func (s *Store) RemoveByPattern(login, pattern, bindPassword string) ([]string, error) {
	dn, err := s.dir.FindDNByLogin(login)
	if err != nil {
		return nil, err
	}
	if bindPassword != "" {
		if err := s.dir.Bind(dn, bindPassword); err != nil {
			return nil, err
		}
	}

	keys, err := s.dir.ReadKeys(dn, pubkeyAttr)
	if err != nil {
		return nil, err
	}

	removed := []string{}
	var result *multierror.Error
	for _, key := range keys {
		if !strings.Contains(key, pattern) {
			continue
		}
		err := s.modifyWithBackfill(dn, directory.Change{Op: directory.OpDelete, Attr: pubkeyAttr, Values: []string{key}})
		switch {
		case err == nil:
			log.Debugf("removed key %s from %s", keyLabel(key), dn)
			removed = append(removed, key)
		case directory.IsResult(err, directory.ResultNoSuchAttribute):
			result = multierror.Append(result, errs.Wrap(err, errs.KeyNotFound, "key %s vanished before removal", keyLabel(key)))
		default:
			result = multierror.Append(result, errors.Wrapf(err, "could not remove key %s", keyLabel(key)))
		}
	}
	return removed, result.ErrorOrNil()
}

// modifyWithBackfill applies change, retrying exactly once with an
// object class backfill when the server reports an objectClassViolation.
// Entries predating the openssh-lpk schema lack the ldapPublicKey class;
// the retry adds it in the same modify as the attribute change.
func (s *Store) modifyWithBackfill(dn string, change directory.Change) error {
	err := s.dir.Modify(dn, []directory.Change{change})
	if !directory.IsResult(err, directory.ResultObjectClassViolation) {
		return err
	}
	log.Debugf("backfilling object class %s on %s", pubkeyClass, dn)
	return s.dir.Modify(dn, []directory.Change{
		{Op: directory.OpAdd, Attr: objectClassAttr, Values: []string{pubkeyClass}},
		change,
	})
}

// keyLabel names a key in messages, preferring its fingerprint over the
// raw material.
func keyLabel(key string) string {
	if fp, err := pubkey.Fingerprint(key); err == nil {
		return fp
	}
	key = strings.TrimSpace(key)
	if len(key) > 40 {
		return key[:40] + "..."
	}
	return key
}
