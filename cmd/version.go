package cmd

import (
	"fmt"

	"github.com/ldapkeys/ldapkeys/pkg/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const flagShort = "short"

func init() {
	versionCmd.Flags().Bool(flagShort, false, "Print only major.minor.patch.")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of ldapkeys",
	RunE: func(cmd *cobra.Command, args []string) error {
		short, err := cmd.Flags().GetBool(flagShort)
		if err != nil {
			return errors.Wrap(err, "Missing short flag")
		}
		if short {
			s := util.ShortVersion()
			if s == "" {
				return errors.New("no semantic version in this build")
			}
			fmt.Println(s)
			return nil
		}
		v, err := util.VersionString()
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}
