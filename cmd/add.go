package cmd

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ldapkeys/ldapkeys/pkg/errs"
	"github.com/ldapkeys/ldapkeys/pkg/keystore"
	"github.com/ldapkeys/ldapkeys/pkg/pubkey"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [FILE]",
	Short: "Add public keys to a user's directory entry",
	Long:  "Reads OpenSSH public keys from FILE, or from stdin when FILE is - or absent, and stores them on the user's directory entry. Empty lines and # comments are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		login, err := targetLogin(cmd)
		if err != nil {
			return err
		}

		keys, err := readKeyLines(args)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return errs.New(errs.KeyInvalid, "no keys in input")
		}

		userPassword, err := writeCredentials(cmd, conf, login)
		if err != nil {
			return err
		}

		sess, err := connect(conf)
		if err != nil {
			return err
		}
		defer sess.Close()

		store := keystore.New(sess)
		for _, key := range keys {
			if err := store.Add(login, key, userPassword); err != nil {
				return err
			}
			label := key
			if fp, err := pubkey.Fingerprint(key); err == nil {
				label = fp
			}
			log.Infof("Added key %s for %s", label, login)
		}
		return nil
	},
}

// readKeyLines loads candidate key lines from the FILE argument, or from
// stdin when it is - or absent. Runs before any password prompt.
func readKeyLines(args []string) ([]string, error) {
	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		expandedPath, err := homedir.Expand(args[0])
		if err != nil {
			return nil, errors.Wrapf(err, "Could not expand %s", args[0])
		}
		f, err := os.Open(expandedPath)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not read keys from %s", expandedPath)
		}
		defer f.Close()
		r = f
	}

	keys := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "Could not read keys")
	}
	return keys, nil
}
