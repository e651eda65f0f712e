// Package ld is the bitcode linker front end, pnacl-ld.
//
// In bitcode mode it links bitcode modules and runs the ABI-simplification
// passes the policy selected:
//
//	link (bitcode link) -> opt (pre-opt passes, optimization) -> finalize (post-opt passes, strip)
//
// opt and finalize are left out when their pass lists are empty, so a
// relocatable link (-r) stops after link. In native mode the inputs are
// handed to the native linker in a single link stage.
package ld

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/dispatch"
	"github.com/vk/pnacldriver/internal/driver"
	"github.com/vk/pnacldriver/internal/pipeline"
	"github.com/vk/pnacldriver/internal/policy"
	"github.com/vk/pnacldriver/internal/toolchain"
)

// Name is the program name of the driver.
const Name = "pnacl-ld"

// Variables specific to pnacl-ld.
const (
	VarSearchDirs     = "SEARCH_DIRS"
	VarStatic         = "STATIC"
	VarNoStdLib       = "NOSTDLIB"
	VarStrip          = "STRIP" // none, debug or all
	VarLinkFlags      = "LD_FLAGS"
	VarBitcodeLinkCmd = "BCLD_COMMAND"
	VarNativeLinkCmd  = "LD_COMMAND"
	VarOpt            = "OPT"
	VarOptFlags       = "OPT_FLAGS"
)

const usage = `Usage: pnacl-ld [options] <input files>

Links bitcode modules into a portable executable (pexe), or native
objects into a native executable when --pnacl-allow-native is given.

Options:
  -o <file>                    Output file (default a.out)
  -L<dir>, -L <dir>            Add a library search directory
  -l<name>                     Link against library <name>
  -r, -relocatable             Produce a relocatable object; no passes run
  -shared                      Produce a shared object
  -static                      Link statically
  -nostdlib                    Do not link the standard libraries
  -O0 .. -O3, -Os              Optimization level
  -s, --strip-all              Strip all symbols
  -S, --strip-debug            Strip debug information
  -z <keyword>                 Pass a keyword to the linker
  -Wl,<a>,<b>                  Pass arguments to the linker
  -arch <arch>                 Target architecture for native links
  --pnacl-allow-native         Accept native inputs and link natively
  --pnacl-native-link          Force a native link
  --pnacl-disable-abi-simplify Skip ABI simplification
  --pnacl-driver-verbose       Log every decision and command
  --dry-run                    Print commands instead of running them
  -save-temps                  Keep intermediate files
`

// New returns the pnacl-ld driver.
func New() *driver.Driver {
	return &driver.Driver{
		Name:     Name,
		Short:    "Link bitcode (or native objects) into an executable",
		Usage:    usage,
		Defaults: Defaults,
		Required: []string{
			VarBitcodeLinkCmd,
			VarNativeLinkCmd,
			VarOpt,
			policy.VarPreoptPasses,
			policy.VarPostoptPasses,
		},
		Rules:      Rules(),
		Positional: positional,
		Build:      Build,
	}
}

// Defaults returns the pnacl-ld variables.
func Defaults() map[string][]string {
	return map[string][]string{
		driver.VarOutput:   {"a.out"},
		driver.VarArch:     {"X8632"},
		driver.VarOptLevel: {"0"},
		VarSearchDirs:      {},
		VarStatic:          {"0"},
		VarNoStdLib:        {"0"},
		VarStrip:           {"none"},
		VarLinkFlags:       {},

		"BCLD":    {"le32-nacl-ld.gold"},
		"LD":      {"ld.gold"},
		"STDLIBS": {"-lc", "-lnacl", "-lpnaclmm"},

		"LD_EMUL_X8632":       {"elf_i386_nacl"},
		"LD_EMUL_X8664":       {"elf_x86_64_nacl"},
		"LD_EMUL_ARM":         {"armelf_nacl"},
		"LD_EMUL_MIPS32":      {"mipselelf_nacl"},
		"BCLD_OFORMAT_X8632":  {"elf32-i386-nacl"},
		"BCLD_OFORMAT_X8664":  {"elf64-x86-64-nacl"},
		"BCLD_OFORMAT_ARM":    {"elf32-littlearm-nacl"},
		"BCLD_OFORMAT_MIPS32": {"elf32-tradlittlemips-nacl"},

		VarBitcodeLinkCmd: {
			"${BCLD} --oformat=elf32-pnacl ${RELOCATABLE ? -r} ${SHARED ? -shared}",
			"${LD_FLAGS} ${@AddPrefix:-L:SEARCH_DIRS} ${inputs}",
			"${RELOCATABLE ? : ${NOSTDLIB ? : ${STDLIBS}}} -o ${output}",
		},
		VarNativeLinkCmd: {
			"${LD} -m ${LD_EMUL_%ARCH%} --oformat=${BCLD_OFORMAT_%ARCH%}",
			"${STATIC ? -static} ${SHARED ? -shared} ${RELOCATABLE ? -r}",
			"${LD_FLAGS} ${@AddPrefix:-L:SEARCH_DIRS} ${inputs} -o ${output}",
		},
		VarOpt:      {"pnacl-opt"},
		VarOptFlags: {"${OPT_LEVEL==0 ? : -O${OPT_LEVEL}}"},
	}
}

// Rules returns the pnacl-ld option table. Order matters: the first match
// wins.
func Rules() []dispatch.Rule {
	return []dispatch.Rule{
		dispatch.On(`-L(.+)`, dispatch.AppendVar(VarSearchDirs, "$0").Paths()),
		dispatch.OnPair(`-L`, `.+`, dispatch.AppendVar(VarSearchDirs, "$0").Paths()),
		dispatch.On(`-l(.+)`, dispatch.AppendVar(driver.VarInputs, "-l$0")),
		dispatch.On(`-r|-relocatable|-i`, dispatch.SetVar(policy.VarRelocatable, "1")),
		dispatch.On(`-shared`, dispatch.SetVar(policy.VarShared, "1")),
		dispatch.On(`-static`, dispatch.SetVar(VarStatic, "1")),
		dispatch.On(`-nostdlib`, dispatch.SetVar(VarNoStdLib, "1")),
		dispatch.On(`-O([0-3s])`, dispatch.SetVar(driver.VarOptLevel, "$0")),
		dispatch.On(`-O`, dispatch.SetVar(driver.VarOptLevel, "1")),
		dispatch.On(`-s|--strip-all`, dispatch.SetVar(VarStrip, "all")),
		dispatch.On(`-S|--strip-debug`, dispatch.SetVar(VarStrip, "debug")),
		dispatch.OnPair(`-z`, `.+`, dispatch.AppendVar(VarLinkFlags, "-z $0")),
		dispatch.On(`-Wl,(.+)`, dispatch.Callback(linkerArgs)),
		dispatch.OnPair(`-arch`, `(x86-32|i686|x86-64|x86_64|arm|mips32)`, dispatch.Callback(setArch)),
		dispatch.On(`--pnacl-allow-native`, dispatch.SetVar(policy.VarAllowNative, "1")),
		dispatch.On(`--pnacl-native-link`, dispatch.SetVar(policy.VarLinkMode, "native")),
		dispatch.On(`--pnacl-bitcode-link`, dispatch.SetVar(policy.VarLinkMode, "bitcode")),
		dispatch.On(`--pnacl-disable-abi-simplify`, dispatch.SetVar(policy.VarDisableSimplify, "1")),
		dispatch.On(`--pnacl-disable-byval-varargs-expansion`, dispatch.SetVar(policy.VarExpandByvalVararg, "0")),
		dispatch.On(`(-pie|-fPIC|-fpic)`, dispatch.Fatal("$0 is not supported by ${DRIVER}")),
		dispatch.On(`(-m32|-m64)`, dispatch.Fatal("$0 is not supported by ${DRIVER}; use -arch")),
		dispatch.On(`--no-undefined|--eh-frame-hdr|-Qunused-arguments|--build-id(=.*)?`, dispatch.NoOp()),
	}
}

// linkerArgs splits -Wl,a,b into separate linker flags.
func linkerArgs(store *configstore.Store, captures []string) error {
	for _, arg := range splitComma(captures[0]) {
		store.Append(VarLinkFlags, arg)
	}
	return nil
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

var archNames = map[string]string{
	"x86-32": "X8632",
	"i686":   "X8632",
	"x86-64": "X8664",
	"x86_64": "X8664",
	"arm":    "ARM",
	"mips32": "MIPS32",
}

func setArch(store *configstore.Store, captures []string) error {
	store.Set(driver.VarArch, archNames[captures[0]])
	return nil
}

// positional records an input file in command-line order, so libraries
// given with -l keep their place among the files.
func positional(store *configstore.Store, token string) error {
	store.Append(driver.VarInputs, token)
	return nil
}

// Build assembles the link pipeline for plan.
func Build(ctx context.Context, env driver.Env) ([]pipeline.Stage, error) {
	store := env.Store

	if env.Plan.Mode == policy.Native {
		cmd, err := store.Fetch(VarNativeLinkCmd)
		if err != nil {
			return nil, err
		}
		return []pipeline.Stage{{Name: "link", Command: joinTemplate(cmd)}}, nil
	}

	cmd, err := store.Fetch(VarBitcodeLinkCmd)
	if err != nil {
		return nil, err
	}
	stages := []pipeline.Stage{{Name: "link", OutputExt: "bc", Command: joinTemplate(cmd)}}

	optFlags, err := env.Expander.ExpandTokens(store.GetJoined(VarOptFlags), store)
	if err != nil {
		return nil, err
	}
	tool := store.GetJoined(VarOpt)

	passes := env.Plan.Passes
	if len(passes.PreOpt) > 0 {
		args := slices.Concat(passes.PreOpt, optFlags)
		stages = append(stages, optStage("opt", tool, args, env.Runner))
	}
	if len(passes.PostOpt) > 0 {
		args := slices.Concat(passes.PostOpt, stripFlags(store.GetJoined(VarStrip)))
		stages = append(stages, optStage("finalize", tool, args, env.Runner))
	}

	// The last stage writes the final output, so its extension is unused.
	stages[len(stages)-1].OutputExt = ""
	return stages, nil
}

// optStage runs the optimizer on the previous stage's artifact.
func optStage(name, tool string, args []string, runner toolchain.Runner) pipeline.Stage {
	return pipeline.Stage{
		Name:      name,
		OutputExt: "bc",
		Func: func(ctx context.Context, w pipeline.Work) error {
			if len(w.Inputs) != 1 {
				return fmt.Errorf("%s expects one input, got %d", name, len(w.Inputs))
			}
			argv := slices.Concat(args, []string{w.Inputs[0], "-o", w.Output})
			return runner.RunTool(ctx, tool, argv)
		},
	}
}

func stripFlags(mode string) []string {
	switch mode {
	case "all":
		return []string{"-strip-all"}
	case "debug":
		return []string{"-strip-debug"}
	}
	return nil
}

// joinTemplate turns a command variable back into one template. Command
// variables hold a template split across several tokens for readability.
func joinTemplate(parts []string) string {
	return strings.Join(parts, " ")
}
