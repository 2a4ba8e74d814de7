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

// encodeEscapedString writes s as UTF-8 bytes terminated by 0x00, escaping any
// embedded 0x00/0x01 byte with a 0x01 prefix so the terminator stays
// unambiguous: 0x00 -> 0x01 0x01, 0x01 -> 0x01 0x02. Every other byte, and the
// escape prefix itself, compares in the same relative order as the
// unescaped byte (0x00 < 0x01-escape-unit < 0x02.. ), so lexicographic order
// over the encoded form matches lexicographic order over the original bytes.
func encodeEscapedString(s string) []byte {
	out := make([]byte, 0, len(s)+1)
	for i := 0; i < len(s); i++ {
		switch b := s[i]; b {
		case 0x00:
			out = append(out, 0x01, 0x01)
		case 0x01:
			out = append(out, 0x01, 0x02)
		default:
			out = append(out, b)
		}
	}
	return append(out, 0x00)
}

// decodeEscapedString reverses encodeEscapedString, returning the decoded
// string and the number of bytes consumed from buf (including the terminator).
func decodeEscapedString(buf []byte) (string, int, error) {
	out := make([]byte, 0, len(buf))
	i := 0
	for {
		if i >= len(buf) {
			return "", 0, ErrCorruptRow
		}
		b := buf[i]
		if b == 0x00 {
			return string(out), i + 1, nil
		}
		if b == 0x01 {
			if i+1 >= len(buf) {
				return "", 0, ErrCorruptRow
			}
			switch buf[i+1] {
			case 0x01:
				out = append(out, 0x00)
			case 0x02:
				out = append(out, 0x01)
			default:
				return "", 0, ErrCorruptRow
			}
			i += 2
			continue
		}
		out = append(out, b)
		i++
	}
}
