// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads machine configuration from defaults, an optional YAML
// file, PINBUS_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. PINBUS_IO_PORT
const EnvPrefix = "PINBUS"

type Config struct {
	IO              BusConfig              `mapstructure:"io"`
	Exp             BusConfig              `mapstructure:"exp"`
	Machine         MachineConfig          `mapstructure:"machine"`
	Timing          TimingConfig           `mapstructure:"timing"`
	ExpansionBoards []ExpansionBoardConfig `mapstructure:"expansion_boards"`
	IoBoards        []IoBoardConfig        `mapstructure:"io_boards"`
	Metrics         MetricsConfig          `mapstructure:"metrics"`
	Log             LogConfig              `mapstructure:"log"`
}

type BusConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

type MachineConfig struct {
	Platform        string `mapstructure:"platform"`
	SwitchReporting string `mapstructure:"switch_reporting"`
}

type TimingConfig struct {
	WatchdogTimeout  time.Duration `mapstructure:"watchdog_timeout"`
	WatchdogInterval time.Duration `mapstructure:"watchdog_interval"`
	BootTimeout      time.Duration `mapstructure:"boot_timeout"`
	Tick             time.Duration `mapstructure:"tick"`
	ConnectBackoff   time.Duration `mapstructure:"connect_backoff"`
	LedFlush         time.Duration `mapstructure:"led_flush"`
}

// ExpansionBoardConfig lists LED names per port on one board
type ExpansionBoardConfig struct {
	Model   string     `mapstructure:"model"`
	Jumper0 bool       `mapstructure:"jumper0"`
	Jumper1 bool       `mapstructure:"jumper1"`
	Ports   [][]string `mapstructure:"ports"`
}

// IoBoardConfig names switches and coils by port; "" leaves a port unused
type IoBoardConfig struct {
	Model    string   `mapstructure:"model"`
	Switches []string `mapstructure:"switches"`
	Coils    []string `mapstructure:"coils"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"io-port":      "io.port",
	"exp-port":     "exp.port",
	"baud":         "io.baud",
	"exp-baud":     "exp.baud",
	"platform":     "machine.platform",
	"reporting":    "machine.switch_reporting",
	"metrics-addr": "metrics.listen",
	"log-level":    "log.level",
	"dev-log":      "log.development",
}

func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so environment overrides unmarshal
	v.SetDefault("io.port", "")
	v.SetDefault("exp.port", "")
	v.SetDefault("metrics.listen", "")
	v.SetDefault("io.baud", fsp.DefaultBaudRate)
	v.SetDefault("exp.baud", fsp.DefaultBaudRate)
	v.SetDefault("machine.platform", "neutron")
	v.SetDefault("machine.switch_reporting", "verbose")
	v.SetDefault("timing.watchdog_timeout", fsp.DefaultWatchdogTimeout)
	v.SetDefault("timing.watchdog_interval", fsp.DefaultWatchdogInterval)
	v.SetDefault("timing.boot_timeout", fsp.DefaultResponseTimeout)
	v.SetDefault("timing.tick", fsp.DefaultTickInterval)
	v.SetDefault("timing.connect_backoff", fsp.DefaultConnectBackoff)
	v.SetDefault("timing.led_flush", fast.DefaultLedFlushInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)
}

// Load reads configuration. path may be empty to skip the file; flags may be
// nil. Only flags present in flags are bound.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Platform parses the configured platform
func (c *Config) Platform() (fsp.Platform, error) {
	return fsp.ParsePlatform(c.Machine.Platform)
}

// SwitchReporting parses the configured reporting mode
func (c *Config) SwitchReporting() (fsp.SwitchReporting, error) {
	return fsp.ParseSwitchReporting(c.Machine.SwitchReporting)
}

// LedLayout converts the expansion board list
func (c *Config) LedLayout() ([]fast.LedBoard, error) {
	boards := make([]fast.LedBoard, 0, len(c.ExpansionBoards))
	for i, b := range c.ExpansionBoards {
		model, err := fsp.ParseBoardModel(b.Model)
		if err != nil {
			return nil, fmt.Errorf("expansion_boards[%d]: %w", i, err)
		}
		board, err := fsp.NewExpansionBoard(model, b.Jumper0, b.Jumper1)
		if err != nil {
			return nil, fmt.Errorf("expansion_boards[%d]: %w", i, err)
		}
		boards = append(boards, fast.LedBoard{Board: board, Ports: b.Ports})
	}
	return boards, nil
}

// IoBoardLayout converts the I/O board list
func (c *Config) IoBoardLayout() ([]fast.IoBoard, error) {
	boards := make([]fast.IoBoard, 0, len(c.IoBoards))
	for i, b := range c.IoBoards {
		model, err := fast.ParseIoBoardModel(b.Model)
		if err != nil {
			return nil, fmt.Errorf("io_boards[%d]: %w", i, err)
		}
		boards = append(boards, fast.IoBoard{Model: model, Switches: b.Switches, Coils: b.Coils})
	}
	return boards, nil
}

// SystemConfig validates everything and builds the runtime configuration
func (c *Config) SystemConfig() (fast.SystemConfig, error) {
	var sc fast.SystemConfig

	if c.IO.Port == "" {
		return sc, fmt.Errorf("io.port is required")
	}
	if c.Exp.Port == "" {
		return sc, fmt.Errorf("exp.port is required")
	}

	platform, err := c.Platform()
	if err != nil {
		return sc, err
	}
	reporting, err := c.SwitchReporting()
	if err != nil {
		return sc, err
	}
	ledBoards, err := c.LedLayout()
	if err != nil {
		return sc, err
	}
	ioBoards, err := c.IoBoardLayout()
	if err != nil {
		return sc, err
	}

	if c.Timing.WatchdogInterval >= c.Timing.WatchdogTimeout {
		return sc, fmt.Errorf("timing.watchdog_interval (%s) must be shorter than timing.watchdog_timeout (%s)",
			c.Timing.WatchdogInterval, c.Timing.WatchdogTimeout)
	}

	return fast.SystemConfig{
		IOPort:  c.IO.Port,
		ExpPort: c.Exp.Port,
		Boot: fast.BootConfig{
			Platform:        platform,
			SwitchReporting: reporting,
			ResponseTimeout: c.Timing.BootTimeout,
		},
		WatchdogTimeout:  c.Timing.WatchdogTimeout,
		WatchdogInterval: c.Timing.WatchdogInterval,
		Tick:             c.Timing.Tick,
		ConnectBackoff:   c.Timing.ConnectBackoff,
		LedFlushInterval: c.Timing.LedFlush,
		LedBoards:        ledBoards,
		IoBoards:         ioBoards,
	}, nil
}
