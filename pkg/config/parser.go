package config

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Parse reads a legacy nss/pam style configuration: one `key value` pair per
// line. `#` starts a comment, key names are case-insensitive and the first
// occurrence of a key wins. Values keep everything after the key up to a
// comment, so multi-token values survive intact.
func Parse(r io.Reader) map[string]string {
	vals := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key := strings.ToLower(fields[0])
		if _, ok := vals[key]; ok {
			continue
		}
		vals[key] = strings.Join(fields[1:], " ")
	}
	return vals
}

// ParseFile parses the configuration file at path.
func ParseFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read config at %s", path)
	}
	defer f.Close()
	return Parse(f), nil
}
