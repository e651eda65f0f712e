// Package translate is the bitcode-to-native translator front end,
// pnacl-translate.
//
// Translation is a fan-out compile stage, one code generator per module
// split, followed by a native link that consumes the split objects in
// split order. -c stops after compile and needs a single split.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/dispatch"
	"github.com/vk/pnacldriver/internal/driver"
	"github.com/vk/pnacldriver/internal/drivererr"
	"github.com/vk/pnacldriver/internal/pipeline"
	"github.com/vk/pnacldriver/internal/policy"
)

// Name is the program name of the driver.
const Name = "pnacl-translate"

// Variables specific to pnacl-translate.
const (
	VarCompileOnly = "COMPILE_ONLY"
	VarStatic      = "STATIC"
	VarCompileCmd  = "LLC_COMMAND"
	VarLinkCmd     = "LD_COMMAND"
	VarLLCFlags    = "LLC_FLAGS"
	VarMAttr       = "MATTR"
	VarMCPU        = "MCPU"
)

// ErrCompileOnlySplit is -c combined with more than one module split.
var ErrCompileOnlySplit = drivererr.New(drivererr.ErrConfig, "-c requires a single module split")

const usage = `Usage: pnacl-translate [options] -arch <arch> <input.pexe>

Translates a portable executable into a native executable.

Options:
  -o <file>                Output file (default a.out)
  -arch <arch>             Target: x86-32, x86-64, arm, mips32 (required)
  -c                       Stop after code generation; write an object file
  -O0 .. -O3               Code generation optimization level
  -split-module=<n>        Module splits: a count, seq, or auto (default)
  -mattr=<attrs>           Target attributes passed to the code generator
  -mcpu=<cpu>              Target CPU passed to the code generator
  -static                  Link statically
  --pnacl-driver-verbose   Log every decision and command
  --dry-run                Print commands instead of running them
  -save-temps              Keep intermediate files
`

// New returns the pnacl-translate driver.
func New() *driver.Driver {
	return &driver.Driver{
		Name:       Name,
		Short:      "Translate a pexe into a native executable",
		Usage:      usage,
		Defaults:   Defaults,
		Required:   []string{driver.VarArch, VarCompileCmd, VarLinkCmd},
		Rules:      Rules(),
		Positional: positional,
		Build:      Build,
	}
}

// Defaults returns the pnacl-translate variables. ARCH has no default: it
// must come from -arch or a configuration file.
func Defaults() map[string][]string {
	return map[string][]string{
		driver.VarOutput:   {"a.out"},
		driver.VarOptLevel: {"2"},
		VarCompileOnly:     {"0"},
		VarStatic:          {"1"},
		VarLLCFlags:        {},
		VarMAttr:           {},
		VarMCPU:            {},

		"LLC": {"pnacl-llc"},
		"LD":  {"ld.gold"},

		"TRIPLE_X8632":  {"i686-none-nacl-gnu"},
		"TRIPLE_X8664":  {"x86_64-none-nacl-gnu"},
		"TRIPLE_ARM":    {"armv7a-none-nacl-gnueabihf"},
		"TRIPLE_MIPS32": {"mipsel-none-nacl-gnu"},

		"LD_EMUL_X8632":  {"elf_i386_nacl"},
		"LD_EMUL_X8664":  {"elf_x86_64_nacl"},
		"LD_EMUL_ARM":    {"armelf_nacl"},
		"LD_EMUL_MIPS32": {"mipselelf_nacl"},

		"CRT_X8632":  {"crtbegin.o"},
		"CRT_X8664":  {"crtbegin.o"},
		"CRT_ARM":    {"crtbegin.o"},
		"CRT_MIPS32": {"crtbegin.o"},

		"LIBS_X8632":  {"-lgcc", "-lcrt_platform"},
		"LIBS_X8664":  {"-lgcc", "-lcrt_platform"},
		"LIBS_ARM":    {"-lgcc", "-lcrt_platform"},
		"LIBS_MIPS32": {"-lgcc", "-lcrt_platform"},

		VarCompileCmd: {
			"${LLC} -mtriple=${TRIPLE_%ARCH%} -O${OPT_LEVEL} ${LLC_FLAGS}",
			"${#MATTR ? -mattr=${MATTR}} ${#MCPU ? -mcpu=${MCPU}}",
			"${split_count==1 ? : -split-module=${split_count} -split-module-index=${split_index}}",
			"-filetype=obj ${input} -o ${output}",
		},
		VarLinkCmd: {
			"${LD} -m ${LD_EMUL_%ARCH%} ${STATIC ? -static}",
			"${CRT_%ARCH%} ${inputs} ${LIBS_%ARCH%} -o ${output}",
		},
	}
}

// Rules returns the pnacl-translate option table.
func Rules() []dispatch.Rule {
	return []dispatch.Rule{
		dispatch.OnPair(`-arch`, `(x86-32|i686|x86-64|x86_64|arm|armv7|mips32)`, dispatch.Callback(setArch)),
		dispatch.On(`--pnacl-arch=(x86-32|i686|x86-64|x86_64|arm|armv7|mips32)`, dispatch.Callback(setArch)),
		dispatch.On(`-c`, dispatch.SetVar(VarCompileOnly, "1")),
		dispatch.On(`-O([0-3])`, dispatch.SetVar(driver.VarOptLevel, "$0")),
		dispatch.On(`-split-module=(.+)`, dispatch.SetVar(policy.VarSplitModule, "$0")),
		dispatch.On(`-mattr=(.+)`, dispatch.SetVar(VarMAttr, "$0")),
		dispatch.On(`-mcpu=(.+)`, dispatch.SetVar(VarMCPU, "$0")),
		dispatch.On(`-static`, dispatch.SetVar(VarStatic, "1")),
		dispatch.On(`-shared`, dispatch.Fatal("${DRIVER} cannot produce shared objects")),
		dispatch.On(`--pnacl-sb`, dispatch.Fatal("sandboxed translation is not supported by ${DRIVER}")),
		dispatch.On(`-(fdata-sections|ffunction-sections)`, dispatch.AppendVar(VarLLCFlags, "-$0")),
		dispatch.On(`--allow-llvm-bitcode-input|-Qunused-arguments`, dispatch.NoOp()),
	}
}

var archNames = map[string]string{
	"x86-32": "X8632",
	"i686":   "X8632",
	"x86-64": "X8664",
	"x86_64": "X8664",
	"arm":    "ARM",
	"armv7":  "ARM",
	"mips32": "MIPS32",
}

func setArch(store *configstore.Store, captures []string) error {
	store.Set(driver.VarArch, archNames[captures[0]])
	return nil
}

// positional accepts exactly one input.
func positional(store *configstore.Store, token string) error {
	if inputs := store.Get(driver.VarInputs); len(inputs) > 0 {
		return fmt.Errorf("%w: %s and %s; %s translates one pexe at a time", driver.ErrTooManyInputs, inputs[0], token, Name)
	}
	store.Set(driver.VarInputs, token)
	return nil
}

// Build assembles compile (fan-out) and link.
func Build(ctx context.Context, env driver.Env) ([]pipeline.Stage, error) {
	store := env.Store
	compileOnly := store.GetBool(VarCompileOnly)
	if compileOnly && env.Plan.SplitCount > 1 {
		return nil, fmt.Errorf("%w: got %d splits; pass -split-module=1 or -split-module=seq", ErrCompileOnlySplit, env.Plan.SplitCount)
	}

	compile, err := store.Fetch(VarCompileCmd)
	if err != nil {
		return nil, err
	}
	stages := []pipeline.Stage{{
		Name:      "compile",
		OutputExt: "o",
		FanOut:    true,
		Command:   strings.Join(compile, " "),
	}}
	if compileOnly {
		stages[0].OutputExt = ""
		return stages, nil
	}

	link, err := store.Fetch(VarLinkCmd)
	if err != nil {
		return nil, err
	}
	return append(stages, pipeline.Stage{Name: "link", Command: strings.Join(link, " ")}), nil
}
