package main

import (
	"os"

	"github.com/ldapkeys/ldapkeys/cmd"
	"github.com/ldapkeys/ldapkeys/pkg/errs"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(errs.ExitCode(err))
	}
}
