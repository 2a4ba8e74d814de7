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
	"bufio"
	"fmt"
	"io"
	"strings"
)

// runREPL mirrors manage_db.cpp's main command loop: print a prompt
// reflecting the active collection, read one line, tokenize it the simple
// whitespace-separated way the original does, and dispatch. An empty line
// means "continue printing the current recordset", matching the original's
// `else { cur_recordset->print_page(); }` fallback.
func runREPL(s *Session, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	confirm := confirmStdin(reader, out)

	for !s.Quit {
		fmt.Fprint(out, prompt(s))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return nil
		}
		line = trimNL(line)
		fields := strings.Fields(line)

		if len(fields) == 0 {
			if s.cur != nil {
				if err := printPage(s); err != nil {
					fmt.Fprintln(s.err, "Error:", err)
				}
			}
			continue
		}

		root := newRootCommand(s, confirm)
		root.SetOut(out)
		root.SetErr(s.err)
		root.SetArgs(fields)
		if err := root.Execute(); err != nil {
			fmt.Fprintln(s.err, "Error:", err)
		}
	}
	return nil
}

func prompt(s *Session) string {
	if s.curName == "" {
		return "kvdoc> "
	}
	return fmt.Sprintf("kvdoc[%s]> ", s.curName)
}
