package policy

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/ctxlog"
	"github.com/vk/pnacldriver/internal/drivererr"
	"github.com/vk/pnacldriver/internal/macro"
	"github.com/vk/pnacldriver/internal/toolchain"
)

var (
	// ErrNativeInput is a native object or archive in a bitcode link.
	ErrNativeInput = drivererr.New(drivererr.ErrConfig, "native input in bitcode link")

	// ErrInvalidLinkMode is a LINK_MODE other than bitcode or native.
	ErrInvalidLinkMode = drivererr.New(drivererr.ErrConfig, "invalid link mode")

	// ErrInvalidSplitCount is a SPLIT_MODULE that is not auto, seq or a
	// positive count.
	ErrInvalidSplitCount = drivererr.New(drivererr.ErrConfig, "invalid split count")
)

// LinkMode is what kind of link a driver performs.
type LinkMode int

const (
	// Bitcode links portable bitcode and runs the ABI passes.
	Bitcode LinkMode = iota
	// Native links native objects with the system linker.
	Native
)

func (m LinkMode) String() string {
	if m == Native {
		return "native"
	}
	return "bitcode"
}

// PassGroup names which pass lists were selected.
type PassGroup int

const (
	// NoPasses runs no ABI-simplification passes.
	NoPasses PassGroup = iota
	// FullPasses runs the regular pre-opt and post-opt groups.
	FullPasses
	// SharedPasses runs the shared-library variant.
	SharedPasses
	// MinimalPasses runs only byval and varargs expansion.
	MinimalPasses
)

func (g PassGroup) String() string {
	switch g {
	case FullPasses:
		return "full"
	case SharedPasses:
		return "shared"
	case MinimalPasses:
		return "minimal"
	}
	return "none"
}

// Passes are the opt arguments for the stages around optimization.
type Passes struct {
	Group   PassGroup
	PreOpt  []string
	PostOpt []string
}

// Plan is the outcome of Decide.
type Plan struct {
	Mode        LinkMode
	Relocatable bool
	Passes      Passes
	SplitCount  int
}

// Options supplies the collaborators Decide needs.
type Options struct {
	// Classify sniffs an input; the default is toolchain.ClassifyFile.
	Classify toolchain.Classifier
	// Parallelism is the available parallelism; the default is
	// runtime.NumCPU().
	Parallelism int
	// Expander expands pass lists; the default is macro.New().
	Expander *macro.Expander
}

func (o Options) withDefaults() Options {
	if o.Classify == nil {
		o.Classify = toolchain.ClassifyFile
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.NumCPU()
	}
	if o.Expander == nil {
		o.Expander = macro.New()
	}
	return o
}

// Decide runs DetermineLinkMode, SelectPasses and SelectSplitCount in that
// order.
func Decide(ctx context.Context, store *configstore.Store, inputs []string, opts Options) (*Plan, error) {
	opts = opts.withDefaults()
	logger := ctxlog.FromContext(ctx)

	mode, err := DetermineLinkMode(store, inputs, opts.Classify)
	if err != nil {
		return nil, err
	}
	passes, err := SelectPasses(store, mode, opts.Expander)
	if err != nil {
		return nil, err
	}
	split, err := SelectSplitCount(store, opts.Parallelism)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Mode:        mode,
		Relocatable: store.GetBool(VarRelocatable),
		Passes:      passes,
		SplitCount:  split,
	}
	logger.Debug("Policy decided.",
		"mode", plan.Mode.String(),
		"relocatable", plan.Relocatable,
		"passes", plan.Passes.Group.String(),
		"split", plan.SplitCount,
	)
	return plan, nil
}

// DetermineLinkMode picks bitcode or native linking. An explicit LINK_MODE
// wins; otherwise any native input selects native mode, which requires
// ALLOW_NATIVE.
func DetermineLinkMode(store *configstore.Store, inputs []string, classify toolchain.Classifier) (LinkMode, error) {
	if classify == nil {
		classify = toolchain.ClassifyFile
	}

	var native string
	for _, in := range inputs {
		if classify(in).IsNative() {
			native = in
			break
		}
	}

	switch explicit := store.GetJoined(VarLinkMode); explicit {
	case "native":
		return Native, nil
	case "bitcode":
		if native != "" {
			return Bitcode, fmt.Errorf("%w: %s", ErrNativeInput, native)
		}
		return Bitcode, nil
	case "":
	default:
		return Bitcode, fmt.Errorf("%w: %q", ErrInvalidLinkMode, explicit)
	}

	if native == "" {
		return Bitcode, nil
	}
	if !store.GetBool(VarAllowNative) {
		return Bitcode, fmt.Errorf("%w: %s (pass --pnacl-allow-native to link it)", ErrNativeInput, native)
	}
	return Native, nil
}

// SelectPasses picks the ABI-simplification pass group:
//
//	native or relocatable link      no passes
//	simplification disabled         minimal set, if byval/varargs expansion is on
//	shared object                   shared pre-opt and post-opt groups
//	otherwise                       pre-opt and post-opt groups
func SelectPasses(store *configstore.Store, mode LinkMode, expander *macro.Expander) (Passes, error) {
	if expander == nil {
		expander = macro.New()
	}
	load := func(name string) ([]string, error) {
		values, err := store.Fetch(name)
		if err != nil {
			return nil, err
		}
		return expander.ExpandTokens(strings.Join(values, " "), store)
	}

	switch {
	case mode == Native, store.GetBool(VarRelocatable):
		return Passes{Group: NoPasses}, nil

	case store.GetBool(VarDisableSimplify):
		if !store.GetBool(VarExpandByvalVararg) {
			return Passes{Group: NoPasses}, nil
		}
		pre, err := load(VarMinimalPasses)
		if err != nil {
			return Passes{}, err
		}
		return Passes{Group: MinimalPasses, PreOpt: pre}, nil

	case store.GetBool(VarShared):
		return loadGroup(SharedPasses, VarSharedPreoptPasses, VarSharedPostoptPasses, load)

	default:
		return loadGroup(FullPasses, VarPreoptPasses, VarPostoptPasses, load)
	}
}

func loadGroup(g PassGroup, preVar, postVar string, load func(string) ([]string, error)) (Passes, error) {
	pre, err := load(preVar)
	if err != nil {
		return Passes{}, err
	}
	post, err := load(postVar)
	if err != nil {
		return Passes{}, err
	}
	return Passes{Group: g, PreOpt: pre, PostOpt: post}, nil
}

// SelectSplitCount resolves SPLIT_MODULE: a positive count is used as is,
// "seq" means 1, and "auto" or unset means min(4, parallelism).
func SelectSplitCount(store *configstore.Store, parallelism int) (int, error) {
	switch v := store.GetJoined(VarSplitModule); v {
	case "", "auto":
		return min(MaxAutoSplit, max(parallelism, 1)), nil
	case "seq":
		return 1, nil
	default:
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSplitCount, v)
		}
		return n, nil
	}
}
