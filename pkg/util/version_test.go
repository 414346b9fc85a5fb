package util_test

import (
	"testing"

	"github.com/ldapkeys/ldapkeys/pkg/util"
	"github.com/stretchr/testify/assert"
)

func TestVersionString(t *testing.T) {
	t.Parallel()
	a := assert.New(t)
	_, err := util.VersionString()
	a.Nil(err)
}

func TestVersionStringBadRelease(t *testing.T) {
	oldVal := util.Release
	defer func() {
		util.Release = oldVal
	}()
	util.Release = "some random value"
	a := assert.New(t)
	_, err := util.VersionString()
	a.NotNil(err)
}

func TestVersionStringBadDirty(t *testing.T) {
	oldVal := util.Dirty
	defer func() {
		util.Dirty = oldVal
	}()
	util.Dirty = "some random value"
	a := assert.New(t)
	_, err := util.VersionString()
	a.NotNil(err)
}

func TestShortVersionError(t *testing.T) {
	oldVal := util.Dirty
	defer func() {
		util.Dirty = oldVal
	}()
	util.Dirty = "some random value"

	a := assert.New(t)
	s := util.ShortVersion()
	a.Empty(s)
}

func TestShortVersion(t *testing.T) {
	oldVersion := util.Version
	oldSha := util.GitSha
	oldRelease := util.Release
	oldDirty := util.Dirty
	defer func() {
		util.Version = oldVersion
		util.GitSha = oldSha
		util.Release = oldRelease
		util.Dirty = oldDirty
	}()
	util.Version = "1.1.1"
	util.GitSha = "gitsha"
	util.Release = "true"
	util.Dirty = "false"
	a := assert.New(t)
	s := util.ShortVersion()
	a.Equal(util.Version, s)
}

func TestShortVersionBadVersion(t *testing.T) {
	oldVersion := util.Version
	oldSha := util.GitSha
	oldRelease := util.Release
	oldDirty := util.Dirty
	defer func() {
		util.Version = oldVersion
		util.GitSha = oldSha
		util.Release = oldRelease
		util.Dirty = oldDirty
	}()
	util.Version = "bad-1.1.1"
	util.GitSha = "gitsha"
	util.Release = "true"
	util.Dirty = "false"
	a := assert.New(t)
	s := util.ShortVersion()
	a.Empty(s)
}

func TestShortVersionStripsBuildMetadata(t *testing.T) {
	oldVersion := util.Version
	oldSha := util.GitSha
	oldRelease := util.Release
	oldDirty := util.Dirty
	defer func() {
		util.Version = oldVersion
		util.GitSha = oldSha
		util.Release = oldRelease
		util.Dirty = oldDirty
	}()
	util.Version = "1.1.1"
	util.GitSha = "gitsha"
	util.Release = "false"
	util.Dirty = "false"
	a := assert.New(t)
	s := util.ShortVersion()
	a.Equal("1.1.1", s)
}
