package toolchain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryHasRequiredLanguages(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)

	for _, id := range []string{"python", "cpp", "c", "java", "javascript", "ruby"} {
		assert.True(t, reg.IDs().Contains(id), "missing %s", id)
		spec, err := reg.Resolve(id)
		require.NoError(t, err)
		assert.NotEmpty(t, spec.HelloWorld, id)
		assert.NotEmpty(t, spec.Image, id)
	}
}

func TestResolveAliasesIgnoringCase(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)

	for alias, want := range map[string]string{
		"node":    "javascript",
		"NodeJS":  "javascript",
		"Python3": "python",
		"c++":     "cpp",
		" java ":  "java",
	} {
		spec, err := reg.Resolve(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, want, spec.ID)
	}
}

func TestResolveUnknownLanguage(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)

	_, err = reg.Resolve("cobol")
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolchain.ErrUnsupportedLanguage))

	var ulErr *toolchain.UnsupportedLanguageError
	require.ErrorAs(t, err, &ulErr)
	assert.Equal(t, "cobol", ulErr.Language)
}

func TestExpandTemplates(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)

	cpp, err := reg.Resolve("cpp")
	require.NoError(t, err)
	require.True(t, cpp.Compiled())

	src := cpp.SourceName("main")
	bin := cpp.ArtifactName("main")
	assert.Equal(t, "main.cpp", src)
	assert.Equal(t, "main.out", bin)

	vars := toolchain.Vars{Entry: "main", Source: src, Binary: bin}
	assert.Equal(t, []string{"g++", "-std=c++17", "-O2", "-pipe", "-o", "main.out", "main.cpp"}, cpp.CompileArgv(vars))
	assert.Equal(t, []string{"./main.out"}, cpp.RunArgv(vars))

	py, err := reg.Resolve("python")
	require.NoError(t, err)
	assert.False(t, py.Compiled())
	assert.Nil(t, py.CompileArgv(vars))
	assert.Equal(t, "", py.ArtifactName("main"))

	java, err := reg.Resolve("java")
	require.NoError(t, err)
	assert.Equal(t, toolchain.PublicClassRule, java.ClassNameRule)
	assert.Equal(t, "MainAbc.class", java.ArtifactName("MainAbc"))
	assert.Contains(t, java.RunArgv(toolchain.Vars{Entry: "MainAbc"}), "MainAbc")
}

func TestLoadRejectsInvalidLists(t *testing.T) {
	_, err := toolchain.Load(strings.NewReader(`
[[languages]]
id = "sh"
source_file = "{entry}.sh"
run_cmd = ["sh", "{src}"]

[[languages]]
id = "bash"
aliases = ["SH"]
source_file = "{entry}.sh"
run_cmd = ["bash", "{src}"]
`))
	require.ErrorContains(t, err, "duplicate")

	_, err = toolchain.Load(strings.NewReader(`
[[languages]]
id = "x"
source_file = "x"
`))
	require.ErrorContains(t, err, "run_cmd")

	_, err = toolchain.Load(strings.NewReader(`
[[languages]]
id = "x"
source_file = "x"
run_cmd = ["x"]
compile_cmd = ["cc"]
`))
	require.ErrorContains(t, err, "compiled_file")

	_, err = toolchain.Load(strings.NewReader(`
[[languages]]
id = "x"
sauce_file = "x"
`))
	require.Error(t, err)
}

func TestMergeOverridesAndExtends(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)

	merged, err := reg.Merge(
		toolchain.Spec{ID: "python", SourceFile: "{entry}.py", RunCmd: []string{"pypy3", "{src}"}},
		toolchain.Spec{ID: "sh", SourceFile: "{entry}.sh", RunCmd: []string{"sh", "{src}"}},
	)
	require.NoError(t, err)

	py, err := merged.Resolve("python")
	require.NoError(t, err)
	assert.Equal(t, "pypy3", py.RunCmd[0])

	// aliases of the replaced spec are gone with it
	_, err = merged.Resolve("py")
	require.Error(t, err)

	_, err = merged.Resolve("sh")
	require.NoError(t, err)

	// the original is untouched
	py, err = reg.Resolve("python")
	require.NoError(t, err)
	assert.Equal(t, "python3", py.RunCmd[0])

	assert.Len(t, merged.List(), len(reg.List())+1)
}

func TestImagesAreDistinct(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)

	images := reg.Images()
	assert.Contains(t, images, "gcc:13")
	seen := map[string]bool{}
	for _, img := range images {
		assert.False(t, seen[img])
		seen[img] = true
	}
}
