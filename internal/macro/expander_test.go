package macro

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/drivererr"
)

func store(vars map[string][]string) *configstore.Store {
	return configstore.NewWithDefaults(vars)
}

func TestExpandIdentity(t *testing.T) {
	fixed := []string{
		"",
		"plain text",
		"  internal   whitespace\tkept ",
		"%ARCH% outside a marker",
		"100% literal }{ braces",
		"$ sign $HOME and $(x)",
	}
	rng := rand.New(rand.NewSource(1))
	const alphabet = "ab %{}$:?#!=@_\t-"
	for i := 0; i < 500; i++ {
		n := rng.Intn(24)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		if s := b.String(); !strings.Contains(s, "${") {
			fixed = append(fixed, s)
		}
	}

	stores := []*configstore.Store{
		store(nil),
		store(map[string][]string{"ARCH": {"X8632"}, "a": {"1"}, "HOME": {"/root"}}),
	}
	for _, s := range fixed {
		for _, vars := range stores {
			got, err := Expand(s, vars)
			require.NoError(t, err, "input %q", s)
			assert.Equal(t, s, got)
		}
	}
}

func TestExpandVariables(t *testing.T) {
	vars := store(map[string][]string{
		"CC":    {"clang"},
		"FLAGS": {"-O2", "-g"},
		"EMPTY": nil,
		"OUT":   {"/tmp/out dir/a.o"},
		"DEF":   {`-DNAME="x"`},
	})

	testCases := []struct {
		name string
		expr string
		want string
	}{
		{name: "single", expr: "${CC}", want: "clang"},
		{name: "list joined", expr: "${CC} ${FLAGS} x.c", want: "clang -O2 -g x.c"},
		{name: "unset is empty", expr: "[${NOPE}]", want: "[]"},
		{name: "set but empty", expr: "[${EMPTY}]", want: "[]"},
		{name: "padding inside marker", expr: "${ CC }", want: "clang"},
		{name: "spaced value is one word", expr: "-o ${OUT}", want: "-o '/tmp/out dir/a.o'"},
		{name: "metacharacters escaped", expr: "${DEF}", want: `-DNAME=\"x\"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Expand(tc.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("tokens survive splitting", func(t *testing.T) {
		toks, err := New().ExpandTokens("${CC} ${OUT} ${DEF} ${FLAGS}", vars)
		require.NoError(t, err)
		want := []string{"clang", "/tmp/out dir/a.o", `-DNAME="x"`, "-O2", "-g"}
		if diff := cmp.Diff(want, toks); diff != "" {
			t.Errorf("tokens mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unbalanced literal quote", func(t *testing.T) {
		_, err := New().ExpandTokens(`say "hi`, vars)
		require.ErrorIs(t, err, ErrMalformedExpression)
	})
}

func TestExpandConditionals(t *testing.T) {
	unset := store(nil)
	set := store(map[string][]string{"X": {"1"}})

	check := func(expr string, vars *configstore.Store, want string) {
		t.Helper()
		got, err := Expand(expr, vars)
		require.NoError(t, err)
		assert.Equal(t, want, got, "expr %q", expr)
	}

	check("${X ? A}", unset, "")
	check("${X ? A}", set, "A")
	check("${X ? A : B}", set, "A")
	check("${X ? A : B}", unset, "B")

	t.Run("falsy values", func(t *testing.T) {
		for _, v := range [][]string{{"0"}, {""}, nil} {
			vars := store(map[string][]string{"X": v})
			check("${X ? A : B}", vars, "B")
			check("${#X ? A : B}", vars, "B")
		}
	})

	t.Run("existence and negation", func(t *testing.T) {
		check("${#X ? yes : no}", set, "yes")
		check("${#X ? yes : no}", unset, "no")
		check("${!X ? yes : no}", unset, "yes")
		check("${!!X ? yes : no}", set, "yes")
		check("${!#X ? yes : no}", set, "no")
	})

	t.Run("equality", func(t *testing.T) {
		vars := store(map[string][]string{"ARCH": {"ARM"}})
		check("${ARCH==ARM ? -marm : -mx86}", vars, "-marm")
		check("${ARCH==X8632 ? -marm : -mx86}", vars, "-mx86")
		check("${ARCH!=ARM ? other}", vars, "")
		check("${!ARCH==ARM ? other : arm}", vars, "arm")
		check("${NOPE== ? unset-equals-empty}", vars, "unset-equals-empty")
	})

	t.Run("bare condition yields 1 or 0", func(t *testing.T) {
		check("${#X}", set, "1")
		check("${!X}", set, "0")
	})

	t.Run("nested", func(t *testing.T) {
		vars := store(map[string][]string{"A": {"1"}, "LIBS": {"-lc", "-lm"}})
		check("${A ? ${B ? ab : a-only} : none}", vars, "a-only")
		check("${A ? pre ${LIBS} post}", vars, "pre -lc -lm post")
		check("${B ? x : ${A ? ${A ? deep}}}", vars, "deep")
	})

	t.Run("colon inside a branch", func(t *testing.T) {
		check("${X ? -Wl,a:b}", set, "-Wl,a:b")
		check("${X ? -Wl,a:b : none}", set, "-Wl,a:b")
		check("${X ? -Wl,a:b : -Wl,c:d}", unset, "-Wl,c:d")
		check("${X ?: bare}", unset, "bare")
		check("${X ? : -O2}", unset, "-O2")
	})

	t.Run("untaken branch is not evaluated", func(t *testing.T) {
		// The untaken branch holds a call that would fail if evaluated.
		check("${X ? fine : ${@Missing:arg}}", set, "fine")
	})
}

func TestExpandIndirection(t *testing.T) {
	vars := store(map[string][]string{
		"ARCH":               {"X8632"},
		"BCLD_OFORMAT_X8632": {"elf32-i386-nacl"},
		"BCLD_OFORMAT_ARM":   {"elf32-littlearm-nacl"},
	})

	got, err := Expand("${BCLD_OFORMAT_%ARCH%}", vars)
	require.NoError(t, err)
	assert.Equal(t, "elf32-i386-nacl", got)

	t.Run("chained", func(t *testing.T) {
		vars := store(map[string][]string{
			"SEL":   {"%INNER%"},
			"INNER": {"ARM"},
			"V_ARM": {"ok"},
		})
		got, err := Expand("${V_%SEL%}", vars)
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	})

	t.Run("inside conditional", func(t *testing.T) {
		got, err := Expand("-oformat=${ARCH ? ${BCLD_OFORMAT_%ARCH%}}", vars)
		require.NoError(t, err)
		assert.Equal(t, "-oformat=elf32-i386-nacl", got)
	})

	t.Run("cycle is an error", func(t *testing.T) {
		vars := store(map[string][]string{"A": {"%B%"}, "B": {"%A%"}})
		_, err := Expand("${X_%A%}", vars)
		require.ErrorIs(t, err, ErrCyclicIndirection)
		assert.ErrorIs(t, err, drivererr.ErrConfig)
	})

	t.Run("self reference is a cycle", func(t *testing.T) {
		vars := store(map[string][]string{"A": {"%A%"}})
		_, err := Expand("${V_%A%}", vars)
		require.ErrorIs(t, err, ErrCyclicIndirection)
		assert.NotErrorIs(t, err, ErrMalformedExpression)
	})

	t.Run("depth bound is configurable", func(t *testing.T) {
		vars := store(map[string][]string{"A": {"%B%"}, "B": {"%C%"}, "C": {"x"}})
		// Three rewrites: %A% -> %B% -> %C% -> x.
		got, err := New(WithMaxDepth(3)).Expand("${V_%A%}", vars)
		require.NoError(t, err)
		assert.Equal(t, "", got)
		_, err = New(WithMaxDepth(2)).Expand("${V_%A%}", vars)
		require.ErrorIs(t, err, ErrCyclicIndirection)
	})
}

func TestExpandAddPrefix(t *testing.T) {
	vars := store(map[string][]string{"SEARCH_DIRS": {"a", "b"}})

	toks, err := New().ExpandTokens("${@AddPrefix:-L:SEARCH_DIRS}", vars)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"-La", "-Lb"}, toks); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}

	t.Run("prefix containing colon", func(t *testing.T) {
		got, err := Expand("${@AddPrefix:-Wl,-z:x,:SEARCH_DIRS}", vars)
		require.NoError(t, err)
		assert.Equal(t, "-Wl,-z:x,a -Wl,-z:x,b", got)
	})

	t.Run("unset list is empty", func(t *testing.T) {
		got, err := Expand("x${@AddPrefix:-l:LIBS}y", vars)
		require.NoError(t, err)
		assert.Equal(t, "xy", got)
	})

	t.Run("custom function", func(t *testing.T) {
		e := New(WithFunc("Count", func(vars Vars, arg string) (string, error) {
			return strings.Repeat("+", len(vars.Get(arg))), nil
		}))
		got, err := e.Expand("${@Count:SEARCH_DIRS}", vars)
		require.NoError(t, err)
		assert.Equal(t, "++", got)
	})
}

func TestExpandMalformed(t *testing.T) {
	testCases := []struct {
		name string
		expr string
	}{
		{name: "unterminated", expr: "abc ${X"},
		{name: "unterminated nested", expr: "${X ? ${Y : z}"},
		{name: "empty marker", expr: "${}"},
		{name: "bad name", expr: "${not a name}"},
		{name: "bad name in condition", expr: "${a-b ? x}"},
		{name: "unknown function", expr: "${@Nope:x}"},
		{name: "AddPrefix without name", expr: "${@AddPrefix}"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Expand(tc.expr, store(nil))
			require.ErrorIs(t, err, ErrMalformedExpression)
			assert.ErrorIs(t, err, drivererr.ErrConfig)
		})
	}
}
