package policy

// Store variables consulted by the policy.
const (
	VarLinkMode          = "LINK_MODE"            // "", "bitcode" or "native"
	VarAllowNative       = "ALLOW_NATIVE"         // permit native inputs, switching to native mode
	VarRelocatable       = "RELOCATABLE"          // -r: partial link, no passes
	VarShared            = "SHARED"               // building a shared object
	VarDisableSimplify   = "DISABLE_ABI_SIMPLIFY" // skip full ABI simplification
	VarExpandByvalVararg = "EXPAND_BYVAL_VARARGS" // still expand byval/varargs when skipping
	VarSplitModule       = "SPLIT_MODULE"         // "auto", "seq" or a count

	VarPreoptPasses        = "ABI_SIMPLIFY_PREOPT_PASSES"
	VarPostoptPasses       = "ABI_SIMPLIFY_POSTOPT_PASSES"
	VarSharedPreoptPasses  = "ABI_SIMPLIFY_SHARED_PREOPT_PASSES"
	VarSharedPostoptPasses = "ABI_SIMPLIFY_SHARED_POSTOPT_PASSES"
	VarMinimalPasses       = "ABI_SIMPLIFY_MINIMAL_PASSES"
)

// MaxAutoSplit bounds the split count chosen by "auto".
const MaxAutoSplit = 4

// Defaults returns the variables the policy reads with their default values.
// Drivers layer their own defaults over these.
func Defaults() map[string][]string {
	return map[string][]string{
		VarLinkMode:          {},
		VarAllowNative:       {"0"},
		VarRelocatable:       {"0"},
		VarShared:            {"0"},
		VarDisableSimplify:   {"0"},
		VarExpandByvalVararg: {"1"},
		VarSplitModule:       {"auto"},

		VarPreoptPasses: {
			"-pnacl-abi-simplify-preopt",
		},
		VarPostoptPasses: {
			"-pnacl-abi-simplify-postopt",
			"-strip-metadata",
		},
		VarSharedPreoptPasses: {
			"-pnacl-abi-simplify-preopt",
			"-pnacl-shared-preopt",
		},
		VarSharedPostoptPasses: {
			"-pnacl-abi-simplify-postopt",
		},
		VarMinimalPasses: {
			"-expand-byval",
			"-expand-varargs",
		},
	}
}
