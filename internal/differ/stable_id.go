// Package differ computes a symbol's position-free stable identity and
// partitions an old/new symbol set into added/modified/deleted/unchanged.
package differ

import (
	"encoding/hex"

	"lukechampine.com/blake3"

	"github.com/lidxdev/lidx/internal/models"
)

// StableID hashes (qualname, signature, kind) — deliberately never a
// position field — so reformatting or moving a symbol produces the same id
// while a rename or signature change produces a new one. Format is
// "sym_" followed by the first 16 hex characters (64 bits) of the digest.
func StableID(in models.SymbolInput) string {
	h := blake3.New(32, nil)
	h.Write([]byte(in.Qualname))
	h.Write([]byte{0})
	if in.Signature != nil {
		h.Write([]byte(*in.Signature))
	}
	h.Write([]byte{0})
	h.Write([]byte(in.Kind))

	sum := h.Sum(nil)
	return "sym_" + hex.EncodeToString(sum)[:16]
}

// StableIDOf is the Symbol-typed equivalent of StableID, used when
// recomputing an existing row's identity for comparison.
func StableIDOf(s models.Symbol) string {
	return StableID(models.SymbolInput{
		Qualname:  s.Qualname,
		Signature: s.Signature,
		Kind:      s.Kind,
	})
}
