package differ

import (
	"github.com/lidxdev/lidx/internal/models"
)

// optStringEqual compares two *string fields for diff purposes, treating
// nil and "" as equivalent so an extractor that starts emitting an empty
// signature instead of nil doesn't spuriously flag a symbol as modified.
func optStringEqual(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// changed reports whether a re-extracted symbol differs from its previously
// stored row in any field other than identity (stable-id, kind, qualname are
// exactly what the stable-id already covers, so they can't differ without
// also changing the stable-id).
func changed(old models.Symbol, in models.SymbolInput) bool {
	if old.StartLine != in.StartLine || old.EndLine != in.EndLine {
		return true
	}
	if old.StartCol != in.StartCol || old.EndCol != in.EndCol {
		return true
	}
	if old.StartByte != in.StartByte || old.EndByte != in.EndByte {
		return true
	}
	if !optStringEqual(old.Signature, in.Signature) {
		return true
	}
	if !optStringEqual(old.Docstring, in.Docstring) {
		return true
	}
	return false
}

func toSymbol(in models.SymbolInput, stableID string) models.Symbol {
	return models.Symbol{
		StableID:  stableID,
		Kind:      in.Kind,
		Name:      in.Name,
		Qualname:  in.Qualname,
		StartLine: in.StartLine,
		EndLine:   in.EndLine,
		StartCol:  in.StartCol,
		EndCol:    in.EndCol,
		StartByte: in.StartByte,
		EndByte:   in.EndByte,
		Signature: in.Signature,
		Docstring: in.Docstring,
	}
}

// ComputeSymbolDiff partitions the union of a file's previously stored
// symbols and its freshly extracted symbols by stable-id. The four output
// slices are pairwise disjoint and together cover every symbol that appears
// in either input:
//   - Added: stable-id present only in the new extraction
//   - Deleted: stable-id present only in the old rows
//   - Modified: stable-id in both, but position/signature/docstring differs
//   - Unchanged: stable-id in both, with identical position/signature/docstring
//
// Added symbols carry ID 0 (not yet persisted); Modified and Unchanged carry
// the old row's ID and FileID so the caller can update in place; Deleted
// carries the old row verbatim so the caller can remove it by ID.
func ComputeSymbolDiff(old []models.Symbol, extracted []models.SymbolInput) models.SymbolDiff {
	oldByID := make(map[string]models.Symbol, len(old))
	for _, s := range old {
		oldByID[s.StableID] = s
	}

	newByID := make(map[string]models.SymbolInput, len(extracted))
	for _, in := range extracted {
		newByID[StableID(in)] = in
	}

	var diff models.SymbolDiff
	for id, in := range newByID {
		oldSym, existed := oldByID[id]
		if !existed {
			diff.Added = append(diff.Added, toSymbol(in, id))
			continue
		}
		if changed(oldSym, in) {
			updated := toSymbol(in, id)
			updated.ID = oldSym.ID
			updated.FileID = oldSym.FileID
			diff.Modified = append(diff.Modified, updated)
		} else {
			diff.Unchanged = append(diff.Unchanged, oldSym)
		}
	}

	for id, oldSym := range oldByID {
		if _, stillPresent := newByID[id]; !stillPresent {
			diff.Deleted = append(diff.Deleted, oldSym)
		}
	}

	return diff
}
