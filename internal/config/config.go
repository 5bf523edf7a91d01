// Package config loads the YAML configuration file describing the MQTT
// broker and the fleet of devices this bridge supervises.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
)

// ConfigError wraps any failure to locate, read or parse the config file.
// It is the sentinel §7 calls a fatal, startup-only error.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MQTT describes the broker connection and canonical topic template.
type MQTT struct {
	ID   string `yaml:"id"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Topic may contain one '+' placeholder, substituted with a device id
	// for devices that don't set their own Topic override.
	Topic string `yaml:"topic"`
}

// rawCapabilities mirrors the YAML shape of a device's capabilities
// override, kept separate from dpcodec.Capabilities since the YAML field
// names (ct_min/ct_max) differ from the wire JSON shape.
type rawCapabilities struct {
	HS    bool   `yaml:"hs"`
	CTMin uint16 `yaml:"ct_min"`
	CTMax uint16 `yaml:"ct_max"`
}

// Device is one entry of the YAML `devices` map.
type Device struct {
	Name          string           `yaml:"name"`
	LocalKey      string           `yaml:"local_key"`
	IP            string           `yaml:"ip"`
	Version       string           `yaml:"version"`
	MaxBrightness float64          `yaml:"max_brightness"`
	PowerOnField  string           `yaml:"power_on_field"`
	Capabilities  *rawCapabilities `yaml:"capabilities"`
	Topic         string           `yaml:"topic"`
}

// File is the top-level shape of the YAML configuration document.
type File struct {
	MQTT    MQTT              `yaml:"mqtt"`
	Devices map[string]Device `yaml:"devices"`
}

// ToDeviceConfig converts one YAML device entry plus its map key (the
// device id) into the dpcodec.DeviceConfig the rest of the bridge consumes.
func (d Device) ToDeviceConfig(id string) dpcodec.DeviceConfig {
	cfg := dpcodec.DeviceConfig{
		ID:            id,
		Name:          d.Name,
		Version:       d.Version,
		Address:       d.IP,
		LocalKey:      d.LocalKey,
		PowerOnDPID:   d.PowerOnField,
		MaxBrightness: d.MaxBrightness,
		BusTopic:      d.Topic,
	}
	if d.Capabilities != nil {
		cfg.Capabilities = dpcodec.Capabilities{HS: d.Capabilities.HS}
		if d.Capabilities.CTMin != 0 || d.Capabilities.CTMax != 0 {
			cfg.Capabilities.CT = &dpcodec.CTRange{Min: d.Capabilities.CTMin, Max: d.Capabilities.CTMax}
		}
	}
	return cfg.Normalized()
}

const skipSampleEnvVar = "SKIP_SAMPLE_CONFIG"

// Load reads and parses the YAML config file at path. If the file is
// absent and SKIP_SAMPLE_CONFIG is unset, a commented sample is written to
// path and Load returns a zero-device File with no error — matching §6's
// "sample template is copied... and the process continues".
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && os.Getenv(skipSampleEnvVar) == "" {
			if werr := os.WriteFile(path, []byte(sampleConfig), 0o644); werr != nil {
				return nil, &ConfigError{Path: path, Err: fmt.Errorf("writing sample config: %w", werr)}
			}
			return &File{Devices: map[string]Device{}}, nil
		}
		return nil, &ConfigError{Path: path, Err: err}
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return &f, nil
}

const sampleConfig = `# tuyabridged configuration.
# Generated automatically because no config file was found at startup.
# Set SKIP_SAMPLE_CONFIG=1 to stop this from happening again.

mqtt:
  id: tuyabridged
  host: localhost
  port: 1883
  topic: home/lights/tuya/+

devices: {}
  # lamp1:
  #   name: Living Room Lamp
  #   local_key: <16-character local key from the Tuya developer console>
  #   ip: 192.168.1.50
  #   version: "3.3"
  #   max_brightness: 1.0
  #   power_on_field: "20"
  #   capabilities:
  #     hs: true
  #     ct_min: 2700
  #     ct_max: 6500
  #   topic: home/lights/tuya/lamp1
`
