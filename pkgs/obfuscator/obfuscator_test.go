package obfuscator

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/pyfog/internal/pyeval"
	"github.com/aledsdavies/pyfog/pkgs/config"
	"github.com/aledsdavies/pyfog/pkgs/lexer"
	"github.com/aledsdavies/pyfog/pkgs/pool"
)

func obfuscate(t *testing.T, opts config.Options, src string) (*Context, string) {
	t.Helper()
	ctx := New(opts)
	return ctx, ctx.ObfuscateSource(src)
}

// execute runs an output made only of assignments and returns the bindings.
func execute(t *testing.T, out string) pyeval.Env {
	t.Helper()
	env := pyeval.Env{}
	require.NoError(t, pyeval.Exec(out, env), "output:\n%s", out)
	return env
}

// valueOf returns the runtime value bound to the renamed form of name.
func valueOf(t *testing.T, ctx *Context, env pyeval.Env, name string) pyeval.Value {
	t.Helper()
	renamed, ok := ctx.Renames().Lookup(name)
	require.True(t, ok, "%s was never renamed", name)
	v, ok := env[renamed]
	require.True(t, ok, "%s (%s) was never bound", name, renamed)
	return v
}

func TestAssignmentOfNumber(t *testing.T) {
	ctx, out := obfuscate(t, config.Default(), "x = 5\n")

	want := "__=((()==[])+(()==[]));___=(__**__);____=(___<<___);_____=(___+(____<<___))\n" +
		"_=_____\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	env := execute(t, out)
	assert.Equal(t, int64(5), valueOf(t, ctx, env, "x").Int.Int64())
}

func TestStringArgumentToBuiltin(t *testing.T) {
	_, out := obfuscate(t, config.Default(), `print("hi")`+"\n")

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)

	m := regexp.MustCompile(`^print\((_+)\)$`).FindStringSubmatch(lines[1])
	require.NotNil(t, m, "body line %q", lines[1])

	env := execute(t, lines[0])
	assert.Equal(t, "hi", env[m[1]].Str)
	assert.NotContains(t, out, "hi")
}

func TestImportLinesUntouched(t *testing.T) {
	src := "import os\nfrom collections import OrderedDict as od\n"
	_, out := obfuscate(t, config.Default(), src)
	assert.Equal(t, src, out)
}

func TestNegativeNumber(t *testing.T) {
	ctx, out := obfuscate(t, config.Default(), "x = -3\n")
	env := execute(t, out)
	assert.Equal(t, int64(-3), valueOf(t, ctx, env, "x").Int.Int64())
}

func TestRepeatedNumberSharesEntry(t *testing.T) {
	ctx, out := obfuscate(t, config.Default(), "a = 100\nb = 100\n")

	name, ok := ctx.Pool().Lookup(pool.Int("100"))
	require.True(t, ok)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3)
	a, _ := ctx.Renames().Lookup("a")
	b, _ := ctx.Renames().Lookup("b")
	assert.Equal(t, a+"="+name, lines[1])
	assert.Equal(t, b+"="+name, lines[2])

	count := 0
	for _, e := range ctx.Pool().Entries() {
		if e.Key == pool.Int("100") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRepeatedStringSharesEntry(t *testing.T) {
	ctx, out := obfuscate(t, config.Default(), "a = 'spam'\nb = \"spam\"\nc = 'eggs'\n")

	spam, ok := ctx.Pool().Lookup(pool.String("spam"))
	require.True(t, ok)
	eggs, ok := ctx.Pool().Lookup(pool.String("eggs"))
	require.True(t, ok)
	assert.NotEqual(t, spam, eggs)

	env := execute(t, out)
	assert.Equal(t, "spam", valueOf(t, ctx, env, "a").Str)
	assert.Equal(t, "spam", valueOf(t, ctx, env, "b").Str)
	assert.Equal(t, "eggs", valueOf(t, ctx, env, "c").Str)
	assert.Equal(t, 2, strings.Count(out, "="+spam+"\n"))
}

func TestNumbersRoundTripThroughDriver(t *testing.T) {
	var src strings.Builder
	for n := 0; n <= 200; n++ {
		fmt.Fprintf(&src, "v%d = %d\n", n, n)
	}
	src.WriteString("big = 123456789012345678901234567890\n")

	ctx, out := obfuscate(t, config.Default(), src.String())
	assert.NotRegexp(t, `[0-9]`, out)

	env := execute(t, out)
	for n := 0; n <= 200; n++ {
		assert.Equal(t, int64(n), valueOf(t, ctx, env, fmt.Sprintf("v%d", n)).Int.Int64(), "v%d", n)
	}
	assert.Equal(t, "123456789012345678901234567890", valueOf(t, ctx, env, "big").Int.String())
}

func TestStringsRoundTripThroughDriver(t *testing.T) {
	src := `a = ""` + "\n" +
		`b = "tab\there"` + "\n" +
		`c = r"\d+"` + "\n" +
		`d = 'it\'s'` + "\n" +
		`e = "héllo 日本 😀"` + "\n" +
		`f = "a,b(c)=d # not a comment"` + "\n" +
		`g = "x" 'y'` + "\n"

	for _, hex := range []bool{false, true} {
		t.Run(fmt.Sprintf("hex=%v", hex), func(t *testing.T) {
			opts := config.Default()
			opts.UseHexStrings = hex
			ctx, out := obfuscate(t, opts, src)
			env := execute(t, out)

			want := map[string]string{
				"a": "",
				"b": "tab\there",
				"c": `\d+`,
				"d": "it's",
				"e": "héllo 日本 😀",
				"f": "a,b(c)=d # not a comment",
				"g": "xy",
			}
			for name, value := range want {
				assert.Equal(t, value, valueOf(t, ctx, env, name).Str, name)
			}
		})
	}
}

func TestTripleQuotedStringSpansLines(t *testing.T) {
	src := "doc = \"\"\"line one\nline two\"\"\"\nx = doc\n"
	ctx, out := obfuscate(t, config.Default(), src)

	env := execute(t, out)
	assert.Equal(t, "line one\nline two", valueOf(t, ctx, env, "doc").Str)
	assert.Equal(t, "line one\nline two", valueOf(t, ctx, env, "x").Str)
}

func TestHexStringsExactOutput(t *testing.T) {
	opts := config.Default()
	opts.UseHexStrings = true
	_, out := obfuscate(t, opts, `s = "hi"`+"\n")
	assert.Equal(t, "_='\\x68\\x69'\n__=_\n", out)
}

func TestDeterminism(t *testing.T) {
	src := "import sys\n" +
		"def greet(name, times):\n" +
		"    for i in range(times):\n" +
		"        print('hello', name, i * 42)  # say hi\n" +
		"    return len(name) + 1000\n" +
		"greet('world', 3)\n"

	for _, builtins := range []bool{false, true} {
		opts := config.Default()
		opts.ObfuscateBuiltins = builtins
		_, first := obfuscate(t, opts, src)
		_, second := obfuscate(t, opts, src)
		assert.Equal(t, first, second)
	}
}

func TestRenameStability(t *testing.T) {
	ctx, out := obfuscate(t, config.Default(), "alpha = 1\nbeta = alpha\nalpha = beta\ngamma = beta\n")

	alpha, _ := ctx.Renames().Lookup("alpha")
	beta, _ := ctx.Renames().Lookup("beta")
	gamma, _ := ctx.Renames().Lookup("gamma")
	assert.Equal(t, []string{"_", "__", "___"}, []string{alpha, beta, gamma})

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Equal(t, []string{
		"_=((()==())+(()==[]))",
		"__=_",
		"_=__",
		"___=__",
	}, lines)
}

func TestHeaderOrderIsExecutable(t *testing.T) {
	src := "a = 65535\nb = 'a longer string with 🙂'\nc = 4096\nd = 77777777777\n"
	for _, builtins := range []bool{false, true} {
		opts := config.Default()
		opts.ObfuscateBuiltins = builtins
		ctx, out := obfuscate(t, opts, src+"e = len\n")

		entries := ctx.Pool().Entries()
		for i := 1; i < len(entries); i++ {
			assert.LessOrEqual(t, len(entries[i-1].Name), len(entries[i].Name))
		}

		header := strings.SplitN(out, "\n", 2)[0]
		execute(t, header)
	}
}

func TestKeywordsStaySeparated(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"membership", "if x in y:", "if _ in __:"},
		{"negation", "return not x", "return not _"},
		{"lambda", "f = lambda a: a is None", "_= lambda __:__ is None"},
		{"def", "def f(a):", "def _(__):"},
		{"ternary", "z = x if x else y", "_=__ if __ else ___"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := New(config.Default())
			got, ok := ctx.RewriteLine(tt.src, false)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndentationRestored(t *testing.T) {
	_, out := obfuscate(t, config.Default(), "def f(a):\n\treturn a + 1\n")
	assert.Equal(t, "def _(__):\n\treturn __+((()==())+(()==[]))\n", out)
}

func TestBlankLinesDropped(t *testing.T) {
	_, out := obfuscate(t, config.Default(), "x = 1\n\n   \ny = 1\n")
	assert.Equal(t, "_=((()==())+(()==[]))\n__=((()==())+(()==[]))\n", out)
}

func TestComments(t *testing.T) {
	src := "# only comment\nx = 1  # trailing\n"

	t.Run("removed", func(t *testing.T) {
		_, out := obfuscate(t, config.Default(), src)
		assert.Equal(t, "_=((()==())+(()==[]))\n", out)
	})

	t.Run("kept", func(t *testing.T) {
		opts := config.Default()
		opts.RemoveComments = false
		_, out := obfuscate(t, opts, src)
		assert.Equal(t, "# only comment\n_=((()==())+(()==[])) # trailing\n", out)
	})

	t.Run("suppressed line reported", func(t *testing.T) {
		ctx := New(config.Default())
		got, ok := ctx.RewriteLine("    # indented comment", false)
		assert.False(t, ok)
		assert.Empty(t, got)
	})
}

func TestBuiltins(t *testing.T) {
	t.Run("kept by default", func(t *testing.T) {
		ctx := New(config.Default())
		got, ok := ctx.RewriteLine("n = len(x)", false)
		require.True(t, ok)
		assert.Equal(t, "_=len(__)", got)
	})

	t.Run("indirected", func(t *testing.T) {
		opts := config.Default()
		opts.ObfuscateBuiltins = true
		ctx := New(opts)
		got, ok := ctx.RewriteLine("n = len(x)", false)
		require.True(t, ok)
		assert.NotContains(t, got, "len")

		m := regexp.MustCompile(`getattr\(__import__\((_+)\),(_+)\)\(_+\)$`).FindStringSubmatch(got)
		require.NotNil(t, m, "line %q", got)

		env := execute(t, ctx.Pool().Serialize())
		assert.Equal(t, "builtins", env[m[1]].Str)
		assert.Equal(t, "len", env[m[2]].Str)

		name, ok := ctx.Pool().Lookup(pool.Builtins)
		require.True(t, ok)
		assert.Equal(t, m[1], name)
	})
}

func TestNamesKeptAsIs(t *testing.T) {
	ctx := New(config.Default())
	got, ok := ctx.RewriteLine("self.__dict__ = __RSV.__B", false)
	require.True(t, ok)
	assert.Equal(t, "_.__dict__=__RSV.__B", got)

	got, _ = ctx.RewriteLine("x = obj.__class__.__name__", false)
	assert.Equal(t, "__=___.__class__.__name__", got)

	got, _ = ctx.RewriteLine("__init__ = None", false)
	assert.Equal(t, "__init__= None", got)
}

func TestSymbolsPassThrough(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x = 1.5", "_=1.5"},
		{"x = 0xFF", "_=0xFF"},
		{"x = 1e-5", "_=1e-5"},
		{"x = 3j", "_=3j"},
		{"x = café", "_=café"},
		{"x = y.upper()", "_=__.upper()"},
		{"@decorator", "@___"},
	}
	ctx := New(config.Default())
	for _, tt := range tests {
		got, ok := ctx.RewriteLine(tt.src, false)
		require.True(t, ok)
		assert.Equal(t, tt.want, got, tt.src)
	}
}

func TestBytesStringsVerbatim(t *testing.T) {
	ctx, out := obfuscate(t, config.Default(), "s = b\"raw bytes\"\n")
	assert.Equal(t, "_=b\"raw bytes\"\n", out)
	assert.Equal(t, 0, ctx.Pool().Len())
}

func TestFStringFieldsFollowRenames(t *testing.T) {
	src := "s = 1\nt = f\"{s}!\"\nu = f\"{s=}\"\n"
	ctx, out := obfuscate(t, config.Default(), src)

	want := "_=((()==())+(()==[]))\n" +
		"__=f\"{_}!\"\n" +
		"___=f\"s={_!r}\"\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	env := execute(t, out)
	assert.Equal(t, "1!", valueOf(t, ctx, env, "t").Str)
	assert.Equal(t, "s=1", valueOf(t, ctx, env, "u").Str)
}

func TestFStringFieldForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"conversion and spec", `x = f"{a + b!s:>10}"`, `_=f"{__+___!s:>10}"`},
		{"nested spec field", `x = f"{n:>{w}}"`, `_=f"{__:>{___}}"`},
		{"escaped braces", `x = f"{{literal}} {y}"`, `_=f"{{literal}} {__}"`},
		{"string inside field", `x = f"{d['k']}"`, `_=f"{__['k']}"`},
		{"keywords inside field", `x = f"{'a' if y else 'b'}"`, `_=f"{'a' if __ else 'b'}"`},
		{"self-documenting with spec", `x = f"{y=:>4}"`, `_=f"y={__:>4}"`},
		{"builtin call", `x = f"{len(y)}"`, `_=f"{len(__)}"`},
		{"raw f-string", `x = rf"\d{y}"`, `_=rf"\d{__}"`},
		{"named escape", `x = f"\N{BULLET} {y}"`, `_=f"\N{BULLET} {__}"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := New(config.Default())
			got, ok := ctx.RewriteLine(tt.src, false)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("builtins stay plain inside fields", func(t *testing.T) {
		opts := config.Default()
		opts.ObfuscateBuiltins = true
		ctx := New(opts)
		got, ok := ctx.RewriteLine(`x = f"{len(y)}"`, false)
		require.True(t, ok)
		assert.Equal(t, `_=f"{len(__)}"`, got)
	})
}

func TestBuiltinExceptionsAndConstants(t *testing.T) {
	src := "class E(Exception):\n" +
		"    pass\n" +
		"try:\n" +
		"    raise ValueError('bad')\n" +
		"except KeyError:\n" +
		"    x = NotImplemented\n"
	names := []string{"Exception", "ValueError", "KeyError", "NotImplemented"}

	t.Run("kept by default", func(t *testing.T) {
		ctx, out := obfuscate(t, config.Default(), src)
		for _, name := range names {
			_, renamed := ctx.Renames().Lookup(name)
			assert.False(t, renamed, "%s must not be renamed", name)
		}
		assert.Regexp(t, `(?m)^class _+\(Exception\):$`, out)
		assert.Regexp(t, `(?m)^    raise ValueError\(_+\)$`, out)
		assert.Contains(t, out, "\nexcept KeyError:\n")
		assert.Regexp(t, `(?m)^    _+=NotImplemented$`, out)
	})

	t.Run("indirected", func(t *testing.T) {
		opts := config.Default()
		opts.ObfuscateBuiltins = true
		ctx, out := obfuscate(t, opts, src)
		for _, name := range names {
			_, renamed := ctx.Renames().Lookup(name)
			assert.False(t, renamed, "%s must not be renamed", name)
			assert.NotContains(t, out, name)
		}

		env := execute(t, ctx.Pool().Serialize())
		fetched := func(pattern string) string {
			m := regexp.MustCompile(pattern).FindStringSubmatch(out)
			require.NotNil(t, m, "no match for %s in:\n%s", pattern, out)
			return env[m[1]].Str
		}
		assert.Equal(t, "ValueError", fetched(`raise getattr\(__import__\(_+\),(_+)\)\(`))
		assert.Equal(t, "KeyError", fetched(`except getattr\(__import__\(_+\),(_+)\):`))
		assert.Equal(t, "Exception", fetched(`class _+\(getattr\(__import__\(_+\),(_+)\)\):`))
	})
}

func TestFutureImportsPrecedeHeader(t *testing.T) {
	ctx, out := obfuscate(t, config.Default(), "from __future__ import annotations\nx = 5\n")

	want := "from __future__ import annotations\n" + ctx.Pool().Serialize() + "_=_____\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	_, out = obfuscate(t, config.Default(), "\"\"\"Module doc.\"\"\"\nfrom __future__ import annotations\ny = 'z'\n")
	assert.True(t, strings.HasPrefix(out, "from __future__ import annotations\n"), out)
}

func TestClassify(t *testing.T) {
	ctx := New(config.Default())
	ctx.hoisted = []string{"_"}

	tests := []struct {
		sym  string
		want lexer.Class
	}{
		{`"abc"`, lexer.STRING},
		{`rb'x'`, lexer.STRING},
		{"#note", lexer.COMMENT},
		{"while", lexer.KEYWORD},
		{"==", lexer.OPERATOR},
		{"True", lexer.REPLACEMENT},
		{"42", lexer.NUMBER},
		{lexer.Placeholder(0), lexer.PLACEHOLDER},
		{lexer.Placeholder(5), lexer.OTHER},
		{"print", lexer.BUILTIN},
		{"ValueError", lexer.BUILTIN},
		{"len(x)", lexer.BUILTIN},
		{"__init__", lexer.OTHER},
		{"__RSV", lexer.OTHER},
		{"1.5", lexer.OTHER},
		{"café", lexer.OTHER},
		{"counter", lexer.IDENTIFIER},
		{"obj.attr", lexer.IDENTIFIER},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want.String(), ctx.classify(tt.sym).String(), tt.sym)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := config.Default()
	opts.BuiltinsConst = "__"
	assert.Panics(t, func() { New(opts) })
}

func TestRewriteLineStrings(t *testing.T) {
	t.Run("literal within a line", func(t *testing.T) {
		ctx := New(config.Default())
		got, ok := ctx.RewriteLine(`s = "a, b (c)"`, true)
		require.True(t, ok)

		env := execute(t, got)
		assert.Equal(t, "a, b (c)", valueOf(t, ctx, env, "s").Str)
	})

	t.Run("unterminated literal verbatim", func(t *testing.T) {
		ctx := New(config.Default())
		got, ok := ctx.RewriteLine(`s = "abc`, false)
		require.True(t, ok)
		assert.Equal(t, `_="abc`, got)
	})

	t.Run("header prepended", func(t *testing.T) {
		ctx := New(config.Default())
		got, ok := ctx.RewriteLine("x = 5", true)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(got, ctx.Pool().Serialize()))
		assert.True(t, strings.HasSuffix(got, "\n_=_____"))
	})

	t.Run("blank line", func(t *testing.T) {
		ctx := New(config.Default())
		got, ok := ctx.RewriteLine("   ", true)
		assert.True(t, ok)
		assert.Equal(t, "   ", got)
	})
}

func TestForceNoHeaderInlinesEverything(t *testing.T) {
	opts := config.Default()
	opts.ForceNoHeader = true
	ctx, out := obfuscate(t, opts, "x = 5\ny = 5\ns = 'ok'\n")

	assert.Equal(t, 0, ctx.Pool().Len())
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.TrimPrefix(lines[0], "_="), strings.TrimPrefix(lines[1], "__="))

	env := execute(t, out)
	assert.Equal(t, int64(5), valueOf(t, ctx, env, "x").Int.Int64())
	assert.Equal(t, int64(5), valueOf(t, ctx, env, "y").Int.Int64())
	assert.Equal(t, "ok", valueOf(t, ctx, env, "s").Str)
}

func TestCustomReplacementsAndFiller(t *testing.T) {
	opts := config.Default()
	opts.NameFiller = "O"
	opts.Replacements["None"] = "(()==[])"
	opts.ExtraReserved = []string{"match"}
	ctx := New(opts)

	got, ok := ctx.RewriteLine("x = True", false)
	require.True(t, ok)
	assert.Equal(t, "O=(()==())", got)

	// Keywords win over replacements.
	got, _ = ctx.RewriteLine("y = None", false)
	assert.Equal(t, "OO= None", got)

	got, _ = ctx.RewriteLine("match y:", false)
	assert.Equal(t, "match OO:", got)
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := New(config.Default(), WithLogger(logger))
	ctx.ObfuscateSource("# note\nx = 'hello'\n")

	logs := buf.String()
	assert.Contains(t, logs, "[POOL] hoisted constant")
	assert.Contains(t, logs, "[RENAME] new identifier")
	assert.Contains(t, logs, "[LEXER] hoisted string literals")
	assert.Contains(t, logs, "[LEXER] suppressed comment line")
}

func TestOptionsAreCopied(t *testing.T) {
	opts := config.Default()
	ctx := New(opts)
	opts.Replacements["True"] = "changed"

	got, _ := ctx.RewriteLine("x = True", false)
	assert.Equal(t, "_=(()==())", got)
	assert.Equal(t, "(()==())", ctx.Options().Replacements["True"])
}
