package cmd

import (
	"fmt"

	"github.com/ldapkeys/ldapkeys/pkg/keystore"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(delCmd)
}

var delCmd = &cobra.Command{
	Use:   "del PATTERN",
	Short: "Remove keys matching PATTERN from a user's directory entry",
	Long:  "Removes every key whose text contains PATTERN, which can match anywhere in the key line, comment included. Each removed key is printed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		login, err := targetLogin(cmd)
		if err != nil {
			return err
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

		removed, err := keystore.New(sess).RemoveByPattern(login, args[0], userPassword)
		for _, key := range removed {
			fmt.Println(key)
		}
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			log.Infof("No keys matched %q for %s", args[0], login)
		} else {
			log.Infof("Removed %d keys for %s", len(removed), login)
		}
		return nil
	},
}
