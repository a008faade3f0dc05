// Package config loads computeduck.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up in the working directory.
const FileName = "computeduck.toml"

const (
	DefaultStackSize  = 512
	DefaultMaxFrames  = 256
	DefaultMaxGlobals = 1024
)

// VM bounds the machine.
type VM struct {
	StackSize  int  `toml:"stack_size"`
	MaxFrames  int  `toml:"max_frames"`
	MaxGlobals int  `toml:"max_globals"`
	Trace      bool `toml:"trace"`
}

type Log struct {
	// Verbosity is passed to commonlog: 0 quiet, 1 info, 2 debug.
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

type REPL struct {
	History string `toml:"history"`
	Prompt  string `toml:"prompt"`
}

type Build struct {
	// Output is the bytecode file extension written by "build".
	Output string `toml:"output"`
}

type Config struct {
	VM    VM    `toml:"vm"`
	Log   Log   `toml:"log"`
	REPL  REPL  `toml:"repl"`
	Build Build `toml:"build"`
}

func Default() Config {
	return Config{
		VM: VM{
			StackSize:  DefaultStackSize,
			MaxFrames:  DefaultMaxFrames,
			MaxGlobals: DefaultMaxGlobals,
		},
		REPL: REPL{
			History: ".computeduck_history",
			Prompt:  "> ",
		},
		Build: Build{
			Output: ".cdk",
		},
	}
}

// Parse decodes data over the defaults. Unknown keys are an error.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: unknown key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.VM.StackSize < 16:
		return fmt.Errorf("config: vm.stack_size must be at least 16, got %d", c.VM.StackSize)
	case c.VM.MaxFrames < 1:
		return fmt.Errorf("config: vm.max_frames must be positive, got %d", c.VM.MaxFrames)
	case c.VM.MaxGlobals < 1:
		return fmt.Errorf("config: vm.max_globals must be positive, got %d", c.VM.MaxGlobals)
	case c.Log.Verbosity < 0:
		return fmt.Errorf("config: log.verbosity must not be negative")
	}
	return nil
}
