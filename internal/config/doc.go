// Package config manages user-level settings stored at ~/.blueprint/config.yaml.
package config
