// Copyright 2025 The kvdoc Authors
// This file is part of kvdoc.
//
// kvdoc is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// kvdoc is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with kvdoc. If not, see <http://www.gnu.org/licenses/>.

// Package jsoncodec implements document.DocumentCodec over encoding/json --
// the plain "document" codec the CLI and CSV loader use by default, per
// SPEC_FULL.md §5.11 (no third-party JSON library appears anywhere in the
// pack's domain surface as a document-codec candidate; the teacher's
// goccy/go-json dep is wired into the CLI's own dump formatting instead,
// see cmd/kvdoc, and json-iterator is not used).
package jsoncodec

import (
	"encoding/json"

	"github.com/kvdoc/kvdoc/document"
)

// Codec is the stdlib-backed document.DocumentCodec.
type Codec struct{}

var _ document.DocumentCodec = Codec{}

// New returns a Codec. It carries no state; a value receiver would do just
// as well, but the constructor mirrors the pack's convention of exposing a
// New for every collaborator type (see index.Open, aggregate.Open).
func New() Codec { return Codec{} }

// Encode marshals v via encoding/json.
func (Codec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals data into v via encoding/json.
func (Codec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
