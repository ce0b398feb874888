package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the TOML configuration format for the regvm command: which
// demo to run, how much memory to give the arena, where
// CreateLibraryCallUnsafe should search for shared libraries, and whether
// disassembly output is colorized.
type Config struct {
	Demo    DemoConfig    `toml:"demo"`
	Memory  MemoryConfig  `toml:"memory"`
	Library LibraryConfig `toml:"library"`
	Disasm  DisasmConfig  `toml:"disasm"`
}

// DemoConfig selects which built-in demo program to build and run.
type DemoConfig struct {
	Name string `toml:"name"`
}

// MemoryConfig sizes the interpreter's unified memory arena.
type MemoryConfig struct {
	MaxBytes int `toml:"max_bytes"`
}

// LibraryConfig lists directories CreateLibraryCallUnsafe searches when a
// requested library path isn't absolute, via vm.WithLibrarySearchPaths.
type LibraryConfig struct {
	SearchPaths []string `toml:"search_paths"`
}

// DisasmConfig controls the -d disassembly output.
type DisasmConfig struct {
	Colorize bool `toml:"colorize"`
}

func defaultConfig() Config {
	return Config{
		Demo:   DemoConfig{Name: "counting-loop"},
		Memory: MemoryConfig{MaxBytes: defaultConfigMemory},
		Disasm: DisasmConfig{Colorize: true},
	}
}

const defaultConfigMemory = 1 << 20

// loadConfig reads a regvm.toml file, falling back to defaults for any
// field the file doesn't set.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if cfg.Memory.MaxBytes <= 0 {
		cfg.Memory.MaxBytes = defaultConfigMemory
	}
	return cfg, nil
}
