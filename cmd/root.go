package cmd

import (
	"os/user"

	"github.com/davecgh/go-spew/spew"
	"github.com/ldapkeys/ldapkeys/pkg/config"
	"github.com/ldapkeys/ldapkeys/pkg/directory"
	"github.com/ldapkeys/ldapkeys/pkg/errs"
	"github.com/ldapkeys/ldapkeys/pkg/util"
	"github.com/pkg/errors"
	prompt "github.com/segmentio/go-prompt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	flagConf    = "conf"
	flagURI     = "uri"
	flagBase    = "base"
	flagBindDN  = "binddn"
	flagUser    = "user"
	flagQuiet   = "quiet"
	flagVerbose = "verbose"
)

func init() {
	rootCmd.PersistentFlags().String(flagConf, config.DefaultConfFile, "Use this to override the LDAP config file.")
	rootCmd.PersistentFlags().String(flagURI, "", "URI of the LDAP server, e.g. ldaps://ldap.example.com. Overrides the config file.")
	rootCmd.PersistentFlags().String(flagBase, "", "Search base DN. Overrides the config file.")
	rootCmd.PersistentFlags().String(flagBindDN, "", "DN to bind as for directory writes, will ask for its password.")
	rootCmd.PersistentFlags().String(flagUser, "", "Login whose keys to manage. Defaults to the current user.")
	rootCmd.PersistentFlags().BoolP(flagQuiet, "q", false, "Print only errors.")
	rootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "Use this to enable verbose mode")
}

var rootCmd = &cobra.Command{
	Use:           "ldapkeys",
	Short:         "Manage OpenSSH public keys stored in an LDAP directory",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, err := cmd.Flags().GetBool(flagVerbose)
		if err != nil {
			return errors.Wrap(err, "Missing verbose flag")
		}
		quiet, err := cmd.Flags().GetBool(flagQuiet)
		if err != nil {
			return errors.Wrap(err, "Missing quiet flag")
		}
		if verbose {
			log.SetLevel(log.DebugLevel)
		} else if quiet {
			log.SetLevel(log.ErrorLevel)
		}
		return nil
	},
}

// Execute executes the command
func Execute() error {
	return rootCmd.Execute()
}

// resolveConfig merges the config file with the override flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	expandedConfFile, err := util.GetConfPath(cmd)
	if err != nil {
		return nil, err
	}

	uri, err := cmd.Flags().GetString(flagURI)
	if err != nil {
		return nil, errors.Wrap(err, "Missing uri flag")
	}
	base, err := cmd.Flags().GetString(flagBase)
	if err != nil {
		return nil, errors.Wrap(err, "Missing base flag")
	}
	bindDN, err := cmd.Flags().GetString(flagBindDN)
	if err != nil {
		return nil, errors.Wrap(err, "Missing binddn flag")
	}

	conf, err := config.Resolve(expandedConfFile, config.Overrides{
		URI:    uri,
		Base:   base,
		BindDN: bindDN,
	})
	if err != nil {
		return nil, err
	}

	redacted := *conf
	if redacted.BindPW != "" {
		redacted.BindPW = "<redacted>"
	}
	log.Debugf("Resolved config: %s", spew.Sdump(redacted))
	return conf, nil
}

// targetLogin picks the login whose keys we manage: the --user flag,
// else the OS user running the command.
func targetLogin(cmd *cobra.Command) (string, error) {
	login, err := cmd.Flags().GetString(flagUser)
	if err != nil {
		return "", errors.Wrap(err, "Missing user flag")
	}
	if login != "" {
		return login, nil
	}
	current, err := user.Current()
	if err != nil {
		return "", errors.Wrap(err, "Could not determine current user")
	}
	return current.Username, nil
}

// writeCredentials decides how directory writes authenticate. With
// --binddn the whole session binds as that DN, asking for its password.
// A binddn+bindpw pair from the config file is used as-is. Failing both,
// the user proves ownership of the entry with their own login password,
// which the store binds with after resolving their DN.
func writeCredentials(cmd *cobra.Command, conf *config.Config, login string) (string, error) {
	bindDN, err := cmd.Flags().GetString(flagBindDN)
	if err != nil {
		return "", errors.Wrap(err, "Missing binddn flag")
	}
	if bindDN != "" {
		password := prompt.PasswordMasked("Password for %s", bindDN)
		if password == "" {
			return "", errs.New(errs.InvalidCredentials, "no password provided for %s", bindDN)
		}
		// conf.BindDN already carries the override from resolveConfig
		conf.BindPW = password
		return "", nil
	}
	if conf.BindDN != "" && conf.BindPW != "" {
		return "", nil
	}
	password := prompt.PasswordMasked("Login password for %s", login)
	if password == "" {
		return "", errs.New(errs.InvalidCredentials, "no password provided for %s", login)
	}
	return password, nil
}

// connect sets up TLS trust and opens the directory session.
func connect(conf *config.Config) (*directory.Session, error) {
	if err := directory.InitTLSCACertDir(conf.TLSCACertDir); err != nil {
		return nil, err
	}
	sess := directory.New(conf)
	if err := sess.Connect(); err != nil {
		return nil, err
	}
	return sess, nil
}
