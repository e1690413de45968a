// Package config loads and validates the VM-wide tunables a host process
// needs to construct a pkg/vm.VM: stack sizing, where the kernel cache and
// trace store live on disk, and the default compilation target. Loading
// follows the teacher's manifest package's split (github.com/BurntSushi/toml
// for lenient decoding), with a schema validation pass on top
// (cuelang.org/go) the teacher's own manifest loader does not perform.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/BurntSushi/toml"
)

// Config holds the VM-wide tunables read from a TOML file.
type Config struct {
	StackSize       int    `toml:"stack_size" json:"stack_size"`
	FrameStackSize  int    `toml:"frame_stack_size" json:"frame_stack_size"`
	KernelCachePath string `toml:"kernel_cache_path" json:"kernel_cache_path"`
	TraceStorePath  string `toml:"trace_store_path" json:"trace_store_path"`
	DefaultTarget   string `toml:"default_target" json:"default_target"`
}

// schema is the CUE constraint set Load validates a decoded Config against,
// after toml.Unmarshal has already applied defaults. It exists as a
// separate validation pass from decoding so a config with the right shape
// but nonsensical values (a zero or negative stack size, an empty target)
// is rejected with a field-level error rather than surfacing later as a
// confusing runtime failure.
const schema = `
stack_size:        int & >0
frame_stack_size:  int & >0
kernel_cache_path: string
trace_store_path:  string
default_target:    string & !=""
`

// Default returns the configuration used when no TOML file is supplied.
func Default() Config {
	return Config{
		StackSize:       4096,
		FrameStackSize:  256,
		KernelCachePath: "kernel_cache.sqlite",
		TraceStorePath:  "",
		DefaultTarget:   "llvm",
	}
}

// Load reads and validates a Config from the TOML file at path. Fields
// absent from the file retain Default's values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// validate unifies cfg against schema and reports the first concrete
// constraint violation, if any.
func validate(cfg Config) error {
	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	cfgVal := ctx.Encode(cfg)
	unified := schemaVal.Unify(cfgVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validating against schema: %w", err)
	}
	return nil
}
