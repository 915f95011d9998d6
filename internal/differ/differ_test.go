package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/models"
)

func sig(s string) *string { return &s }

func TestStableID_StableAcrossPositionChanges(t *testing.T) {
	a := models.SymbolInput{Qualname: "pkg.foo.Bar", Signature: sig("func Bar()"), Kind: models.SymbolKindFunction, StartLine: 10, EndLine: 12}
	b := models.SymbolInput{Qualname: "pkg.foo.Bar", Signature: sig("func Bar()"), Kind: models.SymbolKindFunction, StartLine: 40, EndLine: 44}

	assert.Equal(t, StableID(a), StableID(b), "moving a symbol must not change its stable id")
}

func TestStableID_ChangesWithSignatureOrKind(t *testing.T) {
	base := models.SymbolInput{Qualname: "pkg.foo.Bar", Signature: sig("func Bar()"), Kind: models.SymbolKindFunction}

	diffSig := base
	diffSig.Signature = sig("func Bar(x int)")
	assert.NotEqual(t, StableID(base), StableID(diffSig))

	diffKind := base
	diffKind.Kind = models.SymbolKindMethod
	assert.NotEqual(t, StableID(base), StableID(diffKind))
}

func TestStableID_HasSymPrefixAndFixedLength(t *testing.T) {
	id := StableID(models.SymbolInput{Qualname: "pkg.foo.Bar", Kind: models.SymbolKindFunction})
	require.True(t, len(id) > len("sym_"))
	assert.Equal(t, "sym_", id[:4])
	assert.Len(t, id, len("sym_")+16)
}

func TestComputeSymbolDiff_Partition(t *testing.T) {
	unchangedIn := models.SymbolInput{Qualname: "pkg.a.Keep", Kind: models.SymbolKindFunction, Signature: sig("func Keep()")}
	modifiedOldIn := models.SymbolInput{Qualname: "pkg.a.Grow", Kind: models.SymbolKindFunction, Signature: sig("func Grow()"), StartLine: 1, EndLine: 2}
	modifiedNewIn := models.SymbolInput{Qualname: "pkg.a.Grow", Kind: models.SymbolKindFunction, Signature: sig("func Grow()"), StartLine: 1, EndLine: 5}
	deletedIn := models.SymbolInput{Qualname: "pkg.a.Gone", Kind: models.SymbolKindFunction, Signature: sig("func Gone()")}
	addedIn := models.SymbolInput{Qualname: "pkg.a.New", Kind: models.SymbolKindFunction, Signature: sig("func New()")}

	old := []models.Symbol{
		{ID: 1, StableID: StableID(unchangedIn), Kind: unchangedIn.Kind, Qualname: unchangedIn.Qualname, Signature: unchangedIn.Signature},
		{ID: 2, StableID: StableID(modifiedOldIn), Kind: modifiedOldIn.Kind, Qualname: modifiedOldIn.Qualname, Signature: modifiedOldIn.Signature, StartLine: 1, EndLine: 2},
		{ID: 3, StableID: StableID(deletedIn), Kind: deletedIn.Kind, Qualname: deletedIn.Qualname, Signature: deletedIn.Signature},
	}

	extracted := []models.SymbolInput{unchangedIn, modifiedNewIn, addedIn}

	diff := ComputeSymbolDiff(old, extracted)

	require.Len(t, diff.Added, 1)
	assert.Equal(t, "pkg.a.New", diff.Added[0].Qualname)
	assert.Equal(t, int64(0), diff.Added[0].ID)

	require.Len(t, diff.Modified, 1)
	assert.Equal(t, "pkg.a.Grow", diff.Modified[0].Qualname)
	assert.Equal(t, int64(2), diff.Modified[0].ID)
	assert.Equal(t, 5, diff.Modified[0].EndLine)

	require.Len(t, diff.Deleted, 1)
	assert.Equal(t, "pkg.a.Gone", diff.Deleted[0].Qualname)

	require.Len(t, diff.Unchanged, 1)
	assert.Equal(t, "pkg.a.Keep", diff.Unchanged[0].Qualname)

	assert.False(t, diff.IsEmpty())
}

func TestComputeSymbolDiff_NoChanges(t *testing.T) {
	in := models.SymbolInput{Qualname: "pkg.a.Keep", Kind: models.SymbolKindFunction}
	old := []models.Symbol{{ID: 1, StableID: StableID(in), Kind: in.Kind, Qualname: in.Qualname}}

	diff := ComputeSymbolDiff(old, []models.SymbolInput{in})

	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Modified)
	assert.Empty(t, diff.Deleted)
	require.Len(t, diff.Unchanged, 1)
}

func TestComputeSymbolDiff_EmptyInputs(t *testing.T) {
	diff := ComputeSymbolDiff(nil, nil)
	assert.True(t, diff.IsEmpty())
	assert.Empty(t, diff.Unchanged)
}

func TestComputeSymbolDiff_PartitionsArePairwiseDisjoint(t *testing.T) {
	in := models.SymbolInput{Qualname: "pkg.a.X", Kind: models.SymbolKindFunction}
	old := []models.Symbol{{ID: 1, StableID: StableID(in), Kind: in.Kind, Qualname: in.Qualname}}
	diff := ComputeSymbolDiff(old, []models.SymbolInput{in})

	seen := map[string]int{}
	for _, s := range diff.Added {
		seen[s.StableID]++
	}
	for _, s := range diff.Modified {
		seen[s.StableID]++
	}
	for _, s := range diff.Deleted {
		seen[s.StableID]++
	}
	for _, s := range diff.Unchanged {
		seen[s.StableID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "stable id %s appeared in more than one partition", id)
	}
}
