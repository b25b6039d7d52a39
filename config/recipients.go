package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultRecipients is the fixed test list alerts go to when no file is configured
var DefaultRecipients = []string{
	"9841111111",
	"9842222222",
	"9843333333",
	"9844444444",
	"9845555555",
}

type recipientsFile struct {
	Recipients []string `yaml:"recipients"`
}

// LoadRecipients reads the alert recipient list from a YAML file of the form
//
//	recipients:
//	  - "9841111111"
//
// An empty path yields DefaultRecipients.
func LoadRecipients(path string) ([]string, error) {
	if path == "" {
		return DefaultRecipients, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rf recipientsFile
	if err := yaml.NewDecoder(f).Decode(&rf); err != nil {
		return nil, fmt.Errorf("decode recipients file: %w", err)
	}
	if len(rf.Recipients) == 0 {
		return nil, fmt.Errorf("recipients file %s lists no recipients", path)
	}
	return rf.Recipients, nil
}
