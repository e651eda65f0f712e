package driver

import (
	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/dispatch"
)

// Variables shared by every driver.
const (
	VarDriver    = "DRIVER"
	VarLogLevel  = "LOG_LEVEL"
	VarLogFormat = "LOG_FORMAT"
	VarDryRun    = "DRY_RUN"
	VarSaveTemps = "SAVE_TEMPS"
	VarHelp      = "HELP"
	VarVersion   = "VERSION"
	VarOutput    = "OUTPUT"
	VarInputs    = "INPUTS"
	VarArch      = "ARCH"
	VarOptLevel  = "OPT_LEVEL"
)

// CommonDefaults are the defaults of the shared variables.
func CommonDefaults() map[string][]string {
	return map[string][]string{
		VarLogLevel:  {"warn"},
		VarLogFormat: {"text"},
		VarDryRun:    {"0"},
		VarSaveTemps: {"0"},
		VarHelp:      {"0"},
		VarVersion:   {"0"},
		VarInputs:    {},
	}
}

// CommonRules handle the options every driver accepts.
func CommonRules() []dispatch.Rule {
	return []dispatch.Rule{
		dispatch.On(`--pnacl-driver-verbose`, dispatch.SetVar(VarLogLevel, "debug")),
		dispatch.On(`--pnacl-driver-log-format=(text|json)`, dispatch.SetVar(VarLogFormat, "$0")),
		dispatch.On(`--pnacl-driver-log-format=(.*)`, dispatch.Fatal("unknown log format '$0': use text or json")),
		dispatch.On(`--pnacl-driver-set-([A-Za-z_][A-Za-z0-9_]*)=(.*)`, dispatch.Callback(setVar)),
		dispatch.On(`--pnacl-driver-append-([A-Za-z_][A-Za-z0-9_]*)=(.*)`, dispatch.Callback(appendVar)),
		dispatch.On(`--dry-run`, dispatch.SetVar(VarDryRun, "1")),
		dispatch.On(`-save-temps|--save-temps`, dispatch.SetVar(VarSaveTemps, "1")),
		dispatch.On(`-h|-help|--help`, dispatch.SetVar(VarHelp, "1")),
		dispatch.On(`--version`, dispatch.SetVar(VarVersion, "1")),
		dispatch.On(`-o(.+)`, dispatch.SetVar(VarOutput, "$0").Paths()),
		dispatch.OnPair(`-o`, `.+`, dispatch.SetVar(VarOutput, "$0").Paths()),
	}
}

// The value of --pnacl-driver-set- is stored as one token, verbatim.
func setVar(store *configstore.Store, captures []string) error {
	store.Set(captures[0], captures[1])
	return nil
}

func appendVar(store *configstore.Store, captures []string) error {
	store.Append(captures[0], captures[1])
	return nil
}
