package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pnacldriver/internal/configstore"
)

func TestMergeAndApply(t *testing.T) {
	first := NewModel()
	first.Vars["OPT_LEVEL"] = []string{"0"}
	first.Append["SEARCH_DIRS"] = []string{"a"}
	first.Append["LIBS"] = []string{"-lc"}
	first.Required = []string{"TRIPLE"}
	first.Sources = []string{"one.hcl"}

	second := NewModel()
	second.Vars["LIBS"] = []string{"-lm"}
	second.Append["SEARCH_DIRS"] = []string{"b"}
	second.Required = []string{"TRIPLE", "ARCH"}
	second.Sources = []string{"two.yaml"}

	merged := NewModel()
	merged.Merge(first)
	merged.Merge(second)
	merged.Merge(nil)

	assert.Equal(t, []string{"a", "b"}, merged.Append["SEARCH_DIRS"])
	assert.NotContains(t, merged.Append, "LIBS")
	assert.Equal(t, []string{"TRIPLE", "ARCH"}, merged.Required)
	assert.Equal(t, []string{"one.hcl", "two.yaml"}, merged.Sources)

	store := configstore.NewWithDefaults(map[string][]string{
		"SEARCH_DIRS": {"sdk/lib"},
		"LIBS":        {"-lpthread"},
	})
	merged.Apply(store)

	assert.Equal(t, []string{"0"}, store.Get("OPT_LEVEL"))
	assert.Equal(t, []string{"-lm"}, store.Get("LIBS"))
	assert.Equal(t, []string{"sdk/lib", "a", "b"}, store.Get("SEARCH_DIRS"))

	err := store.CheckRequired()
	require.ErrorIs(t, err, configstore.ErrMissingConfig)
	assert.ErrorContains(t, err, "ARCH, TRIPLE")
}

func TestEmpty(t *testing.T) {
	m := NewModel()
	assert.True(t, m.Empty())
	m.Sources = []string{"x.hcl"}
	assert.True(t, m.Empty())
	m.Required = []string{"X"}
	assert.False(t, m.Empty())
}
