// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package find

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reader/internal/entitystore"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// --- test helpers ---

func sym(id, tex string, children ...string) types.Entity {
	e := types.Entity{ID: id, Type: types.EntitySymbol, Attributes: types.Attributes{Tex: tex}}
	if len(children) > 0 {
		refs := make([]types.Ref, 0, len(children))
		for _, c := range children {
			refs = append(refs, types.Ref{Type: types.EntitySymbol, ID: c})
		}
		e.Relationships = types.Relationships{"children": types.ManyRefs(refs...)}
	}
	return e
}

func term(id, name string) types.Entity {
	return types.Entity{ID: id, Type: types.EntityTerm, Attributes: types.Attributes{Name: name}}
}

func sampleStore() entitystore.Store {
	return entitystore.FromSlice([]types.Entity{
		sym("s1", "$x$"),
		sym("s2", "x_i"),
		term("t1", "Attention"),
		sym("s3", "$ x $"),
		sym("s4", "y", "s1"),
		sym("s5", "z"),
		term("t2", "attention "),
		term("t3", "softmax"),
	}, entitystore.ByID)
}

// --- normalization ---

func TestNormalizeTex(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"$x$", "x"},
		{"$$ x + y $$", "x+y"},
		{"  \\alpha ", "\\alpha"},
		{"\\alpha b", "\\alpha b"},
		{"\\alphab", "\\alphab"},
		{"\\alpha  +  b", "\\alpha+b"},
		{"\\, x", "\\,x"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTex(tt.in), tt.in)
	}
}

func TestTexTokens(t *testing.T) {
	assert.Equal(t, []string{"\\max", "_", "i"}, TexTokens("$\\max_i$"))
	assert.Equal(t, []string{"\\alpha", "b"}, TexTokens("\\alpha b"))
	assert.Equal(t, []string{"\\{", "x", "\\}"}, TexTokens("\\{ x \\}"))
	assert.Nil(t, TexTokens("$$"))
}

func TestNormalizeTermName(t *testing.T) {
	assert.Equal(t, "self attention", NormalizeTermName("  Self   Attention "))
}

// --- MatchingSymbols ---

func TestMatchingSymbols_ExactOnly(t *testing.T) {
	got := MatchingSymbols([]string{"s1"}, sampleStore(), []SymbolFilter{FilterExactMatch})
	assert.Equal(t, []string{"s1", "s3"}, got)
}

func TestMatchingSymbols_DefaultFiltersIncludePartial(t *testing.T) {
	got := MatchingSymbols([]string{"s1"}, sampleStore(), nil)
	// s2 contains "x" in its TeX, s4 has s1 as a child.
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, got)
}

func TestMatchingSymbols_LetterDoesNotMatchInsideMacros(t *testing.T) {
	store := entitystore.FromSlice([]types.Entity{
		sym("a", "$a$"),
		sym("alpha", "$\\alpha$"),
		sym("max", "$\\max_i$"),
		sym("lambda", "$\\lambda$"),
		sym("a_i", "$a_i$"),
	}, entitystore.ByID)

	assert.Equal(t, []string{"a", "a_i"}, MatchingSymbols([]string{"a"}, store, nil))
	assert.Equal(t, []string{"a_i"}, MatchingSymbols([]string{"a"}, store, []SymbolFilter{FilterPartialMatch}))
}

func TestMatchingSymbols_ControlWordBoundaryIsKept(t *testing.T) {
	store := entitystore.FromSlice([]types.Entity{
		sym("spaced", "$\\alpha b$"),
		sym("joined", "$\\alphab$"),
		sym("alpha", "$\\alpha$"),
	}, entitystore.ByID)

	assert.Equal(t, []string{"spaced"}, MatchingSymbols([]string{"spaced"}, store, []SymbolFilter{FilterExactMatch}))
	assert.Equal(t, []string{"joined"}, MatchingSymbols([]string{"joined"}, store, []SymbolFilter{FilterExactMatch}))

	// \alpha is a whole token of "\alpha b" but not of "\alphab".
	assert.Equal(t, []string{"spaced", "alpha"}, MatchingSymbols([]string{"alpha"}, store, nil))
}

func TestMatchingSymbols_EmptyFilterListMatchesNothing(t *testing.T) {
	got := MatchingSymbols([]string{"s1"}, sampleStore(), []SymbolFilter{})
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestMatchingSymbols_OrderIndependentOfSelection(t *testing.T) {
	store := sampleStore()
	a := MatchingSymbols([]string{"s5", "s1"}, store, nil)
	b := MatchingSymbols([]string{"s1", "s5"}, store, nil)
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4", "s5"}, a)
}

func TestMatchingSymbols_Deterministic(t *testing.T) {
	store := sampleStore()
	first := MatchingSymbols([]string{"s1", "s5"}, store, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, MatchingSymbols([]string{"s5", "s1"}, store, nil))
	}
}

func TestMatchingSymbols_IgnoresNonSymbolsAndMissing(t *testing.T) {
	got := MatchingSymbols([]string{"t1", "missing"}, sampleStore(), nil)
	assert.Empty(t, got)
}

// --- MatchingTerms ---

func TestMatchingTerms(t *testing.T) {
	got := MatchingTerms([]string{"t1"}, sampleStore())
	assert.Equal(t, []string{"t1", "t2"}, got)

	assert.Empty(t, MatchingTerms([]string{"s1"}, sampleStore()))
}

// --- Equivalent ---

func TestEquivalent(t *testing.T) {
	assert.True(t, Equivalent(sym("a", "x"), sym("b", "x")))
	assert.False(t, Equivalent(sym("a", "x"), sym("b", "$x$")))
	assert.True(t, Equivalent(term("a", "foo"), term("b", "foo")))
	assert.False(t, Equivalent(term("a", "x"), sym("b", "x")))
	assert.False(t, Equivalent(types.Entity{Type: types.EntityCitation}, types.Entity{Type: types.EntityCitation}))
}

// --- state machine ---

func TestInactive(t *testing.T) {
	s := Inactive()
	assert.False(t, s.Active())
	assert.Equal(t, NoIndex, s.MatchIndex)
	assert.Nil(t, s.MatchedEntities)
}

func TestStartText(t *testing.T) {
	now := time.Unix(100, 0)
	s := StartText(now)
	assert.Equal(t, ModeText, s.Mode)
	assert.NotNil(t, s.MatchedEntities)
	assert.Equal(t, now, s.ActivatedAt)
}

func TestStartSymbol_IndexOfClicked(t *testing.T) {
	s := StartSymbol([]string{"a", "b", "c"}, "b", nil, time.Now())
	assert.Equal(t, ModeSymbol, s.Mode)
	assert.Equal(t, 3, s.MatchCount)
	assert.Equal(t, 1, s.MatchIndex)
	require.NotNil(t, s.Query)
	assert.Equal(t, DefaultSymbolFilters, s.Query.SymbolFilters)
	assert.Equal(t, "b", s.Query.EntityID)
}

func TestWithMatches_FocusAbsent(t *testing.T) {
	s := StartSymbol([]string{"a"}, "a", nil, time.Now())
	s = s.WithMatches(Query{SymbolFilters: []SymbolFilter{FilterExactMatch}}, []string{"x", "y"}, "a")
	assert.Equal(t, NoIndex, s.MatchIndex)
	assert.Equal(t, 2, s.MatchCount)
}

func TestWithMatchIndex(t *testing.T) {
	s := StartTerm([]string{"a", "b"}, "a", time.Now())

	next, target, ok := s.WithMatchIndex(1)
	assert.True(t, ok)
	assert.Equal(t, "b", target)
	assert.Equal(t, 1, next.MatchIndex)

	_, _, ok = s.WithMatchIndex(5)
	assert.False(t, ok)

	text := StartText(time.Now())
	_, _, ok = text.WithMatchIndex(0)
	assert.False(t, ok)
}

func TestCurrent(t *testing.T) {
	s := StartTerm([]string{"a", "b"}, "b", time.Now())
	id, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, "b", id)

	_, ok = Inactive().Current()
	assert.False(t, ok)
}
