package materialize_test

import (
	"os"
	"testing"

	"github.com/programme-lv/judge/internal/materialize"
	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/programme-lv/judge/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T) (*workspace.Manager, *workspace.Workspace) {
	t.Helper()
	m, err := workspace.NewManager(t.TempDir())
	require.NoError(t, err)
	ws, err := m.Acquire()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return m, ws
}

func TestSourceUsesToolchainNames(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)
	cpp, err := reg.Resolve("cpp")
	require.NoError(t, err)

	_, ws := newWorkspace(t)
	m, err := materialize.Source(ws, cpp, "int main(){}")
	require.NoError(t, err)

	assert.Equal(t, "main.cpp", m.SourceFile)
	assert.Equal(t, "main.out", m.ArtifactFile)
	assert.Equal(t, materialize.DefaultEntry, m.EntryName)

	body, err := os.ReadFile(ws.Path(m.SourceFile))
	require.NoError(t, err)
	assert.Equal(t, "int main(){}", string(body))
}

func TestJavaClassNamesAreDistinctPerJob(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)
	java, err := reg.Resolve("java")
	require.NoError(t, err)

	src := "public class Main { public static void main(String[] a) {} }"

	_, ws1 := newWorkspace(t)
	_, ws2 := newWorkspace(t)
	m1, err := materialize.Source(ws1, java, src)
	require.NoError(t, err)
	m2, err := materialize.Source(ws2, java, src)
	require.NoError(t, err)

	assert.NotEqual(t, m1.EntryName, m2.EntryName)
	assert.Equal(t, m1.EntryName+".java", m1.SourceFile)
	assert.Equal(t, m1.EntryName+".class", m1.ArtifactFile)

	body, err := ws1.ReadFile(m1.SourceFile)
	require.NoError(t, err)
	assert.Contains(t, string(body), "public class "+m1.EntryName+" ")
}

func TestJavaAmbiguityWritesNothing(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)
	java, err := reg.Resolve("java")
	require.NoError(t, err)

	_, ws := newWorkspace(t)
	_, err = materialize.Source(ws, java, "public class A {} public class B {}")
	var mErr *materialize.MaterializationError
	require.ErrorAs(t, err, &mErr)
	assert.Empty(t, ws.Files())
}

func TestInputFilesAreDistinct(t *testing.T) {
	_, ws := newWorkspace(t)

	a, err := materialize.Input(ws, 0, "1 2\n")
	require.NoError(t, err)
	b, err := materialize.Input(ws, 1, "3 4\n")
	require.NoError(t, err)

	assert.Equal(t, "input-001.txt", a)
	assert.Equal(t, "input-002.txt", b)

	body, err := ws.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "3 4\n", string(body))
}

func TestEntryNameIsIdentifier(t *testing.T) {
	name := materialize.EntryName("0b6f5c2e-1d1c-4c55-9f0e-6b3a1f6c9d11")
	assert.Equal(t, "Main0b6f5c2e1d1c4c559f0e6b3a1f6c9d11", name)
}
