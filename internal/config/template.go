package config

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"
)

// WriteExample renders the default configuration as a commented-free TOML
// template at path, for `codecontext init`-style scaffolding.
func WriteExample(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(Default()); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
