package util

import (
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// GetConfPath gets the LDAP config file path from a cobra cmd
func GetConfPath(cmd *cobra.Command) (string, error) {
	confFile, err := cmd.Flags().GetString("conf")
	if err != nil {
		return "", errors.New("Missing conf")
	}
	expandedConfFile, err := homedir.Expand(confFile)
	if err != nil {
		return "", errors.Wrapf(err, "Could not expand %s", confFile)
	}
	return expandedConfFile, nil
}
