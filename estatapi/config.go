// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package estatapi

import (
	"os"
	"path/filepath"

	"github.com/stockparfait/errors"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	// ConfigFile is the name of the user's config file in the config directory.
	ConfigFile = "config.toml"
	// AppIDEnv is the environment variable overriding app_id in the config file.
	AppIDEnv = "ESTAT_APP_ID"
)

// Config is the user's private configuration.
type Config struct {
	AppID string `toml:"app_id"` // application ID issued by e-Stat
}

// ReadConfig reads <dir>/config.toml. When the file doesn't exist, the error
// explains how to create it. A non-empty ESTAT_APP_ID environment variable
// takes precedence over the file, which then doesn't need to exist.
func ReadConfig(dir string) (*Config, error) {
	if id := os.Getenv(AppIDEnv); id != "" {
		return &Config{AppID: id}, nil
	}
	filePath := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `app_id = "YourEStatApplicationID"
`
			err = errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s"+
					"or set %s in the environment",
				filePath, sample, AppIDEnv)
			return nil, err
		} else {
			return nil, errors.Annotate(err,
				"cannot check config file for existence: '%s'", filePath)
		}
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	if c.AppID == "" {
		return nil, errors.Reason("app_id is missing in %s", filePath)
	}
	return &c, nil
}
