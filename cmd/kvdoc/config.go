// Copyright 2025 The kvdoc Authors
// This file is part of kvdoc.
//
// kvdoc is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// kvdoc is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with kvdoc. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/kvdoc/kvdoc/kv/mdbxkv"
)

// Config is the CLI's own on-disk configuration, supplementing the flags
// manage_db.cpp took on the command line (-c/-r/-s) with a file so repeated
// invocations against the same database don't have to restate them.
type Config struct {
	MapSize  datasize.ByteSize `toml:"map_size"`
	ReadOnly bool              `toml:"read_only"`
	Debug    bool              `toml:"debug"`
}

func defaultConfig() Config {
	return Config{MapSize: mdbxkv.DefaultMapSize}
}

// loadConfig reads a TOML config file at path, falling back to defaultConfig
// if path is empty or the file doesn't exist -- a config file is a
// convenience, never a requirement.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}
