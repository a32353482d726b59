// Package confedit holds the snapshot primitives shared by the edit log,
// the session and the diff engine: deep cloning with selectable
// strategies, null-normalization and the change detector built on top of
// it.
//
// Every transition between logical versions of a configuration goes
// through Clone so that no two versions share mutable structure, and every
// "did this change" question goes through HasChanges so that absent and
// explicitly empty values compare as equal.
package confedit
