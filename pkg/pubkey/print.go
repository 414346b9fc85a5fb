package pubkey

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

type keyToPrint struct {
	Type        string `yaml:"type"`
	Fingerprint string `yaml:"fingerprint,omitempty"`
	Comment     string `yaml:"comment,omitempty"`
	Key         string `yaml:"key"`
}

// PrintKeys prints a pretty version of the given keys to the given writer.
// Keys too mangled to fingerprint are printed without one.
func PrintKeys(keys []string, w io.Writer) error {
	toPrint := make([]*keyToPrint, 0, len(keys))
	for _, key := range keys {
		k := &keyToPrint{
			Type:    Type(key),
			Comment: Comment(key),
			Key:     key,
		}
		if fp, err := Fingerprint(key); err == nil {
			k.Fingerprint = fp
		}
		toPrint = append(toPrint, k)
	}
	data, err := yaml.Marshal(toPrint)
	if err != nil {
		return errors.Wrap(err, "could not yaml marshal keys")
	}
	_, err = fmt.Fprintln(w, string(data))
	return errors.Wrap(err, "could not print keys")
}
