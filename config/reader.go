package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
)

// Read reads a config from the given file, expanding environment variables first.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
// Fields missing from the document keep their default values.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	cfg := Default()
	cfg.ConfigFilePath = originalPath

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := cfg.Validate("robot"); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	return cfg, nil
}
