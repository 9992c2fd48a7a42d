package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text     string
		wantName string
		wantRest string
	}{
		{"/gastos", "/gastos", ""},
		{"/GASTO nuevo 100", "/gasto", "nuevo 100"},
		{"/start@finova_bot", "/start", ""},
		{"/login@finova_bot  ana@example.com  clave ", "/login", "ana@example.com  clave"},
		{"  /ayuda", "/ayuda", ""},
		{"hola", "", "hola"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			name, rest := commandName(tt.text)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"spaces", "  a   b\tc\n", []string{"a", "b", "c"}},
		{"quoted", `nueva "Casa grande" fijo`, []string{"nueva", "Casa grande", "fijo"}},
		{"quoted option", `nota="Super del mes" x`, []string{"nota=Super del mes", "x"}},
		{"empty quotes", `a "" b`, []string{"a", "", "b"}},
		{"unterminated", `a "b c`, []string{"a", "b c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, splitArgs(tt.in))
		})
	}
}

func FuzzSplitArgs(f *testing.F) {
	f.Add(`nueva "Casa grande" fijo 100`)
	f.Add(`nota="a b" partida=1`)
	f.Add(`"`)
	f.Add("")

	f.Fuzz(func(t *testing.T, s string) {
		for _, arg := range splitArgs(s) {
			if strings.Contains(arg, `"`) {
				t.Fatalf("quote left in %q from %q", arg, s)
			}
		}
		if !strings.Contains(s, `"`) {
			fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' })
			if got, want := len(splitArgs(s)), len(fields); got != want {
				t.Fatalf("splitArgs(%q) gave %d args, want %d", s, got, want)
			}
		}
	})
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	t.Run("only listed keys are options", func(t *testing.T) {
		t.Parallel()
		a := parseArgs(`nuevo 100 hoy variable partida=2 Nota="x y" clave=a=b`, "partida", "nota")

		assert.Equal(t, []string{"nuevo", "100", "hoy", "variable", "clave=a=b"}, a.positional)
		v, ok := a.option("partida")
		assert.True(t, ok)
		assert.Equal(t, "2", v)
		v, ok = a.option("nota")
		assert.True(t, ok)
		assert.Equal(t, "x y", v)
	})

	t.Run("passwords with equals stay positional", func(t *testing.T) {
		t.Parallel()
		a := parseArgs("ana@example.com nombre=secreto")
		assert.Equal(t, []string{"ana@example.com", "nombre=secreto"}, a.positional)
		assert.Empty(t, a.options)
	})

	t.Run("arg bounds", func(t *testing.T) {
		t.Parallel()
		a := parseArgs("uno")
		assert.Equal(t, "uno", a.arg(0))
		assert.Empty(t, a.arg(1))
		assert.Empty(t, a.arg(-1))
	})

	t.Run("optionPtr", func(t *testing.T) {
		t.Parallel()
		a := parseArgs("telefono=", "telefono", "nombre")
		require.NotNil(t, a.optionPtr("telefono"))
		assert.Empty(t, *a.optionPtr("telefono"))
		assert.Nil(t, a.optionPtr("nombre"))
	})
}

func TestParseID(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"1", "#42", "9007199254740993"} {
		_, ok := parseID(in)
		assert.True(t, ok, in)
	}
	for _, in := range []string{"", "0", "-3", "#", "abc", "1.5"} {
		_, ok := parseID(in)
		assert.False(t, ok, in)
	}

	id, _ := parseID("#42")
	assert.Equal(t, int64(42), id)
}

func TestIsYes(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"si", "Sí", " true ", "1", "YES"} {
		assert.True(t, isYes(in), in)
	}
	for _, in := range []string{"", "no", "0", "false"} {
		assert.False(t, isYes(in), in)
	}
}
