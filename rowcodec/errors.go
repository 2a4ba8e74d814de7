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

package rowcodec

import "errors"

// ErrCorruptRow is returned by Decode when the buffer is truncated or a
// variant discriminator is out of range. Treated as fatal for the current
// operation by callers per spec.md §7.
var ErrCorruptRow = errors.New("rowcodec: corrupt row")

// ErrValueKindMismatch is returned by Encode when a supplied Value does not
// match the Go type expected for its column's Kind.
var ErrValueKindMismatch = errors.New("rowcodec: value does not match column kind")

// ErrNulInString is returned by Encode for a KindWideString value containing
// the NUL terminator rune; such values must be passed as a Blob instead.
// KindString escapes embedded NUL bytes rather than rejecting them.
var ErrNulInString = errors.New("rowcodec: string must not contain NUL terminator")
