package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Saúde", "saude"},
		{"  Finanças   Pessoais ", "financas pessoais"},
		{"VENDAS", "vendas"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.in), "Key(%q)", tt.in)
	}
}

func TestScoreReflexive(t *testing.T) {
	for _, name := range []string{"Vendas", "Saúde", "a", "machine learning", "日本語"} {
		assert.Equal(t, Max, Score(name, name), "Score(%q, %q)", name, name)
	}
}

func TestScoreSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Financas", "Finanças"},
		{"Marketing", "Marketting"},
		{"RH", "Recursos Humanos"},
		{"abc", ""},
		{"Logística", "Logistica Reversa"},
	}
	for _, p := range pairs {
		assert.Equal(t, Score(p[0], p[1]), Score(p[1], p[0]), "Score not symmetric for %q/%q", p[0], p[1])
	}
}

func TestScoreEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Score("", ""))
	assert.Equal(t, 0.0, Score("vendas", ""))
	assert.Equal(t, 0.0, Score("  ", "vendas"))
}

func TestScoreFoldsCaseAndAccents(t *testing.T) {
	assert.Equal(t, Max, Score("Vendas", "vendas"))
	assert.Equal(t, Max, Score("Finanças", "Financas"))
	assert.Equal(t, Max, Score("SAÚDE", "saude"))
}

func TestScoreBelowMaxWhenDifferent(t *testing.T) {
	s := Score("Marketing", "Marketting")
	assert.Less(t, s, Max)
	assert.GreaterOrEqual(t, s, 70.0)

	// 1 edit over 200 runes must still stay below 100
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'a'
	}
	other := append([]rune(nil), long...)
	other[199] = 'b'
	assert.Less(t, Score(string(long), string(other)), Max)
}

func TestScoreMonotonic(t *testing.T) {
	base := "Recursos Humanos"
	closer := Score(base, "Recursos Humano")
	farther := Score(base, "Recursos")
	unrelated := Score(base, "Tecnologia")
	assert.Greater(t, closer, farther)
	assert.Greater(t, farther, unrelated)
}

func TestScoreKnownValues(t *testing.T) {
	// kitten -> sitting: distance 3, max length 7
	assert.InDelta(t, 100.0*4.0/7.0, Score("kitten", "sitting"), 1e-9)
	assert.Equal(t, 0.0, Score("abc", "xyz"))
}
