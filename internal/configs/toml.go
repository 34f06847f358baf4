package configs

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SaveTOML writes data to a TOML file, creating parent directories.
func SaveTOML(filePath string, data interface{}) error {
	return writeTOML(filePath, data, os.O_TRUNC)
}

// CreateTOML is SaveTOML for a file that must not exist yet. An existing
// file fails with fs.ErrExist and is left untouched.
func CreateTOML(filePath string, data interface{}) error {
	return writeTOML(filePath, data, os.O_EXCL)
}

func writeTOML(filePath string, data interface{}, flag int) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return err
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|flag, 0600)
	if err != nil {
		return err
	}

	enc := toml.NewEncoder(file)
	enc.Indent = "  "
	err = enc.Encode(data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil && flag&os.O_EXCL != 0 {
		os.Remove(filePath)
	}
	return err
}

// LoadTOML decodes a TOML file into data and returns the keys that did not
// map onto any field.
func LoadTOML(filePath string, data interface{}) ([]string, error) {
	meta, err := toml.DecodeFile(filePath, data)
	if err != nil {
		return nil, err
	}

	var unknown []string
	for _, key := range meta.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return unknown, nil
}
