package cmd

import (
	"fmt"
	"os"

	"github.com/ldapkeys/ldapkeys/pkg/keystore"
	"github.com/ldapkeys/ldapkeys/pkg/pubkey"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const flagLong = "long"

func init() {
	listCmd.Flags().BoolP(flagLong, "l", false, "Also print type, fingerprint and comment for each key.")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the public keys stored for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		long, err := cmd.Flags().GetBool(flagLong)
		if err != nil {
			return errors.Wrap(err, "Missing long flag")
		}
		conf, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		login, err := targetLogin(cmd)
		if err != nil {
			return err
		}

		sess, err := connect(conf)
		if err != nil {
			return err
		}
		defer sess.Close()

		keys, err := keystore.New(sess).List(login)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			log.Infof("No keys found for %s", login)
			return nil
		}
		if long {
			return pubkey.PrintKeys(keys, os.Stdout)
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		return nil
	},
}
