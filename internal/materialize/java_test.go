package materialize_test

import (
	"testing"

	"github.com/programme-lv/judge/internal/materialize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenamePublicClass(t *testing.T) {
	src := `import java.util.*;

// Solution reads a number and prints it
public class Solution {
    static Solution instance = new Solution();
    Solution() {}

    public static void main(String[] args) {
        String s = "Solution";
        char c = '"';
        /* Solution in a comment */
        System.out.println(Solution.class.getName() + s + c);
    }

    static class Helper {}
}

class Other {
    Solution ref;
}
`
	out, err := materialize.RenamePublicClass(src, "MainX")
	require.NoError(t, err)

	assert.Contains(t, out, "public class MainX {")
	assert.Contains(t, out, "static MainX instance = new MainX();")
	assert.Contains(t, out, "    MainX() {}")
	assert.Contains(t, out, "MainX.class.getName()")
	assert.Contains(t, out, "    MainX ref;")

	// literals and comments are untouched
	assert.Contains(t, out, `String s = "Solution";`)
	assert.Contains(t, out, "/* Solution in a comment */")
	assert.Contains(t, out, "// Solution reads a number")

	assert.Contains(t, out, "static class Helper {}")
	assert.Contains(t, out, "class Other {")
}

func TestRenamePublicClassModifiersAndKinds(t *testing.T) {
	cases := map[string]string{
		"final":     "public final class A { }",
		"abstract":  "abstract public class A { }",
		"interface": "public interface A { }",
		"enum":      "public enum A { X, Y }",
		"record":    "public record A(int x) { }",
		"generic":   "public class A<T> { }",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := materialize.RenamePublicClass(src, "B")
			require.NoError(t, err)
			assert.NotContains(t, out, " A")
			assert.Contains(t, out, " B")
		})
	}
}

func TestRenamePublicClassIgnoresNestedPublicTypes(t *testing.T) {
	src := `public class Main {
    public static class Node {}
    public interface Visitor {}
    public static void main(String[] a) { System.out.println("public class Fake {}"); }
}
`
	out, err := materialize.RenamePublicClass(src, "Main42")
	require.NoError(t, err)
	assert.Contains(t, out, "public class Main42 {")
	assert.Contains(t, out, "public static class Node {}")
	assert.Contains(t, out, `"public class Fake {}"`)
}

func TestRenamePublicClassTextBlock(t *testing.T) {
	src := "public class Main {\n    String t = \"\"\"\n        Main \"quoted\" {\n        \"\"\";\n}\n"
	out, err := materialize.RenamePublicClass(src, "Z")
	require.NoError(t, err)
	assert.Contains(t, out, "public class Z {")
	assert.Contains(t, out, "        Main \"quoted\" {\n")
}

func TestRenamePublicClassFailsLoudly(t *testing.T) {
	var mErr *materialize.MaterializationError

	_, err := materialize.RenamePublicClass("class Main { }", "X")
	require.ErrorAs(t, err, &mErr)
	assert.Contains(t, err.Error(), "no public")

	_, err = materialize.RenamePublicClass("public class A { }\npublic class B { }", "X")
	require.ErrorAs(t, err, &mErr)
	assert.Contains(t, err.Error(), "A, B")

	_, err = materialize.RenamePublicClass("public class A { /* never closed", "X")
	require.ErrorAs(t, err, &mErr)

	_, err = materialize.RenamePublicClass("public class A { } }", "X")
	require.ErrorAs(t, err, &mErr)
}
