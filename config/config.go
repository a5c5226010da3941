// Package config loads the caster's YAML configuration file: serial
// device settings, mountpoint fields, credentials, listen addresses,
// and the receiver's fixed base position.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Serial describes the physical connection to the GNSS receiver.
type Serial struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// BasePosition is the fixed WGS84 position the receiver configurator
// sends to the module via PAIR062.
type BasePosition struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
	Alt float64 `yaml:"alt"`
}

// Mountpoint mirrors caster.Mountpoint's source-table fields, minus the
// ones the config doesn't need to override (callers apply defaults via
// caster.DefaultMountpoint first).
type Mountpoint struct {
	Name       string `yaml:"name"`
	Identifier string `yaml:"identifier"`
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
}

// Config is the root of the YAML document accepted by -config.
type Config struct {
	Serial Serial `yaml:"serial"`

	RTCMMessages []int `yaml:"rtcm_messages"`
	BasePosition BasePosition `yaml:"base_position"`

	Mountpoints []Mountpoint `yaml:"mountpoints"`
	Credentials map[string]string `yaml:"credentials"`

	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	CasterHost    string `yaml:"caster_host"`
	CasterPort    int    `yaml:"caster_port"`
	CasterProduct string `yaml:"caster_product"`
	CasterName    string `yaml:"caster_name"`
	CasterCountry string `yaml:"caster_country"`
}

// defaults mirrors the conventional values original_source hardcoded,
// applied before the YAML file is parsed so a minimal config file only
// needs to name what differs.
func defaults() Config {
	return Config{
		Serial:        Serial{Port: "/dev/ttyUSB0", Baud: 115200},
		RTCMMessages:  []int{1005, 1074, 1084, 1094, 1124, 1230},
		ListenAddr:    ":2101",
		CasterHost:    "localhost",
		CasterPort:    2101,
		CasterProduct: "rtcm-caster/1.0",
		CasterName:    "RTCM-CASTER",
		CasterCountry: "USA",
	}
}

// Load reads and parses the YAML file at path, starting from defaults
// and overriding whatever fields the file sets.
func Load(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if len(cfg.Mountpoints) == 0 {
		return Config{}, fmt.Errorf("config: at least one mountpoint is required")
	}

	return cfg, nil
}
