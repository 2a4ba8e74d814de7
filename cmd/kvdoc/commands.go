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
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kvdoc/kvdoc/batch"
	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/kv"
)

// pageSize bounds how many rows first/last/seek/select/rewind print per
// call, mirroring manage_db.cpp's terminal-height-driven page size; kvdoc
// has no terminal to query so it just picks a fixed, generous page.
const pageSize = 20

// purposeText/purposeFromText mirror manage_db.cpp's purposeToText table,
// the vocabulary the "create"/"list" commands speak to operators.
func purposeText(p kv.Purpose) string {
	switch p {
	case kv.PurposeStorage:
		return "Storage"
	case kv.PurposeIndex:
		return "Index"
	case kv.PurposeUniqueIndex:
		return "Unique index"
	case kv.PurposeMap:
		return "Map"
	case kv.PurposeAggregation:
		return "Aggregation"
	case kv.PurposeUndefined:
		return "Undefined"
	default:
		return "Unknown"
	}
}

func purposeFromText(text string) (kv.Purpose, bool) {
	for _, p := range []kv.Purpose{
		kv.PurposeStorage, kv.PurposeIndex, kv.PurposeUniqueIndex,
		kv.PurposeMap, kv.PurposeAggregation, kv.PurposeUndefined,
	} {
		if purposeText(p) == text {
			return p, true
		}
	}
	return 0, false
}

// newRootCommand builds the interactive command tree fresh for each REPL
// line: cobra.Command trees are cheap, stateless value holders here, all the
// state they act on lives in s.
func newRootCommand(s *Session, confirm func(prompt string) bool) *cobra.Command {
	root := &cobra.Command{Use: "kvdoc", SilenceUsage: true, SilenceErrors: true}

	root.AddCommand(&cobra.Command{
		Use: "list", Short: "list every collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			tables := s.db.List("", false)
			rows := make([]column, 0, len(tables))
			for _, t := range tables {
				rows = append(rows, column{
					id:  strconv.Itoa(int(t.KID)),
					key: purposeText(t.Purpose),
					val: fmt.Sprintf("%d bytes  %s", t.ApproxSize, t.Name),
				})
			}
			printColumns(s.out, "KID  Purpose      Size  Name", rows)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "use <name>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { return s.use(args[0]) },
	})

	root.AddCommand(&cobra.Command{
		Use: "create <purpose> <name>", Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			purpose, ok := purposeFromText(args[0])
			if !ok {
				return errors.Errorf("unknown purpose %q", args[0])
			}
			kid, err := s.db.Open(args[1], purpose)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Collection keyspace is: %d\n", kid)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "erase_table <name>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := s.db.OpenExisting(args[0]); err != nil {
				return errors.Wrapf(err, "collection %q", args[0])
			}
			if !confirm(fmt.Sprintf("Do you really wish to erase collection: %s\nPlease answer \"yes\": ", args[0])) {
				return nil
			}
			return s.db.Delete(args[0])
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "purge <id...>", Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, purpose, err := s.currentInfo()
			if err != nil {
				return err
			}
			if purpose != kv.PurposeStorage {
				return errors.New("supported collection: Storage")
			}
			storage, err := document.Open(s.db, s.curName)
			if err != nil {
				return err
			}
			for _, a := range args {
				id, err := strconv.ParseUint(a, 10, 64)
				if err != nil {
					return errors.Wrapf(err, "invalid document id %q", a)
				}
				if err := storage.Purge(s.eng, document.DocID(id)); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Purged document: %d\n", id)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "compact", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, purpose, err := s.currentInfo()
			if err != nil {
				return err
			}
			if purpose != kv.PurposeStorage {
				return errors.New("compact is only supported for Storage collections")
			}
			storage, err := document.Open(s.db, s.curName)
			if err != nil {
				return err
			}
			return storage.Compact(s.eng)
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "first", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kid, purpose, err := s.currentInfo()
			if err != nil {
				return err
			}
			if err := s.openFirst(kid, purpose); err != nil {
				return err
			}
			return printPage(s)
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "last", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kid, purpose, err := s.currentInfo()
			if err != nil {
				return err
			}
			if err := s.openLast(kid, purpose); err != nil {
				return err
			}
			return printPage(s)
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "seek <key|docid>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kid, purpose, err := s.currentInfo()
			if err != nil {
				return err
			}
			var key []byte
			if purpose == kv.PurposeStorage {
				id, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return errors.Wrap(err, "the document ID must be a number")
				}
				var buf [8]byte
				binary.BigEndian.PutUint64(buf[:], id)
				key = buf[:]
			} else {
				key = []byte(args[0])
			}
			if err := s.openSeek(kid, purpose, key, true); err != nil {
				return err
			}
			return printPage(s)
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "select <prefix>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kid, purpose, err := s.currentInfo()
			if err != nil {
				return err
			}
			if purpose == kv.PurposeStorage {
				return errors.New("the command select cannot be used for Storage collection")
			}
			if err := s.openSelect(kid, purpose, []byte(args[0])); err != nil {
				return err
			}
			return printPage(s)
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "rewind", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cur == nil {
				return errors.New("there is no opened recordset. Use first/last/seek/select command")
			}
			s.cur.rs.Reset()
			return printPage(s)
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "document <id>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { return runDocument(s, args[0]) },
	})

	root.AddCommand(&cobra.Command{
		Use: "backup <from_id> [file]", Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error { return runBackup(s, args) },
	})

	root.AddCommand(&cobra.Command{
		Use: "restore <file>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { return runRestore(s, args[0]) },
	})

	root.AddCommand(&cobra.Command{
		Use: "chkref <storage>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { return runChkref(s, args[0], confirm) },
	})

	root.AddCommand(&cobra.Command{
		Use: "chkstorage", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return runChkstorage(s) },
	})

	root.AddCommand(&cobra.Command{
		Use: "private", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kid, _, err := s.currentInfo()
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Table's private area")
			if err := s.openPrivate(kid); err != nil {
				return err
			}
			return printPage(s)
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "system_table", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(s.out, "System table:")
			if err := s.openSystemTable(); err != nil {
				return err
			}
			return printPage(s)
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "variables", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := s.listVars()
			if err != nil {
				return err
			}
			rows := make([]column, 0, len(vars))
			for _, v := range vars {
				rows = append(rows, column{key: v.Name, val: v.Value})
			}
			printColumns(s.out, "", rows)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use: "set_var <key> <value>", Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error { return s.setVar(args[0], args[1]) },
	})

	root.AddCommand(&cobra.Command{
		Use: "unset_var <key>", Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { return s.unsetVar(args[0]) },
	})

	root.AddCommand(&cobra.Command{
		Use: "levels", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error { return runLevels(s) },
	})

	root.AddCommand(&cobra.Command{
		Use: "quit", Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s.Quit = true
			return nil
		},
	})

	return root
}

// printPage renders up to pageSize rows of the current cursor, per-purpose,
// mirroring manage_db.cpp's RecordsetList::print_page switch on Purpose.
func printPage(s *Session) error {
	rs := s.cur.rs
	rows := make([]column, 0, pageSize)
	n := pageSize
	for n > 0 && rs.Valid() {
		n--
		key := rs.Key()
		val := rs.Value()
		switch s.cur.purpose {
		case kv.PurposeStorage:
			id := document.DecodeDocIDKey(key)
			oldRev, data, err := document.DecodeStorageValue(val)
			if err != nil {
				return err
			}
			rows = append(rows, column{id: strconv.FormatUint(uint64(id), 10), key: strconv.FormatUint(uint64(oldRev), 10), val: makePrintable(data)})
		case kv.PurposeUniqueIndex:
			userKey := key[1:]
			id, data, err := document.DecodeStorageValue(val)
			if err != nil {
				return err
			}
			rows = append(rows, column{id: strconv.FormatUint(uint64(id), 10), key: makePrintable(userKey), val: makePrintable(data)})
		case kv.PurposeIndex:
			raw := key[1:]
			if len(raw) < 8 {
				rows = append(rows, column{key: makePrintable(raw), val: makePrintable(val)})
				break
			}
			userKey := raw[:len(raw)-8]
			id := binary.BigEndian.Uint64(raw[len(raw)-8:])
			rows = append(rows, column{id: strconv.FormatUint(id, 10), key: makePrintable(userKey), val: makePrintable(val)})
		case kv.PurposePrivateArea:
			rows = append(rows, column{key: makePrintable(key[2:]), val: makePrintable(val)})
		default:
			rows = append(rows, column{key: makePrintable(key[1:]), val: makePrintable(val)})
		}
		if !rs.Next() {
			break
		}
	}
	printColumns(s.out, "", rows)
	if rs.Valid() {
		fmt.Fprintln(s.out, "... more record(s) follow. Press enter to load more.")
	}
	return nil
}

func runDocument(s *Session, arg string) error {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return errors.New("the document ID must be a number greater than zero")
	}
	docID := document.DocID(id)

	if s.curName != "" {
		if _, purpose, err := s.db.OpenExisting(s.curName); err == nil && purpose == kv.PurposeStorage {
			storage, err := document.Open(s.db, s.curName)
			if err != nil {
				return err
			}
			doc, ok, err := storage.Get(s.eng, docID)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Errorf("document was not found in the collection: %s", s.curName)
			}
			fmt.Fprintln(s.out, makePrintable(doc.Data))
			return nil
		}
	}

	found := false
	for _, t := range s.db.List("", true) {
		if t.Purpose != kv.PurposeStorage {
			continue
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], id)
		raw, ok, err := s.eng.Get(kv.RowKey(t.KID, buf[:]))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		_, data, err := document.DecodeStorageValue(raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Document from collection %q:\n", t.Name)
		fmt.Fprintln(s.out, makePrintable(data))
		found = true
	}
	if !found {
		return errors.New("no document found")
	}
	return nil
}

func runBackup(s *Session, args []string) error {
	_, purpose, err := s.currentInfo()
	if err != nil {
		return err
	}
	if purpose != kv.PurposeStorage {
		return errors.New("only Storage can be backed up")
	}
	fromID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return errors.Wrap(err, "invalid from_id")
	}
	base := s.curName
	if len(args) > 1 {
		base = args[1]
	}
	storage, err := document.Open(s.db, s.curName)
	if err != nil {
		return err
	}
	fname := fmt.Sprintf("%s_%d", base, uint64(storage.Rev())+1)
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrapf(err, "create backup file %s", fname)
	}
	defer f.Close()

	fmt.Fprintf(s.out, "Backup_file: %s\n", fname)
	return storage.Export(s.eng, document.DocID(fromID), func(row document.ExportedRow) error {
		var header [12]byte
		binary.BigEndian.PutUint64(header[0:8], uint64(row.ID))
		binary.BigEndian.PutUint32(header[8:12], uint32(len(row.Raw)))
		if _, err := f.Write(header[:]); err != nil {
			return err
		}
		_, err := f.Write(row.Raw)
		return err
	})
}

func runRestore(s *Session, filename string) error {
	_, purpose, err := s.currentInfo()
	if err != nil {
		return err
	}
	if purpose != kv.PurposeStorage {
		return errors.New("you can only restore to a collection of the \"Storage\" type")
	}
	storage, err := document.Open(s.db, s.curName)
	if err != nil {
		return err
	}
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "open %s", filename)
	}
	defer f.Close()

	var header [12]byte
	var count int
	var lastID document.DocID
	for {
		if _, err := io.ReadFull(f, header[:]); err != nil {
			break
		}
		id := document.DocID(binary.BigEndian.Uint64(header[0:8]))
		size := binary.BigEndian.Uint32(header[8:12])
		data := make([]byte, size)
		if _, err := io.ReadFull(f, data); err != nil {
			return errors.Wrap(err, "truncated record")
		}
		b := batch.New(s.eng)
		if err := storage.Import(s.eng, b, document.ExportedRow{ID: id, Raw: data}); err != nil {
			return err
		}
		if err := b.Commit(true); err != nil {
			return err
		}
		count++
		lastID = id
	}
	fmt.Fprintf(s.out, "Imported %d record(s). Last document had ID: %d\n", count, lastID)
	return nil
}

func runChkref(s *Session, storageName string, confirm func(string) bool) error {
	kid, purpose, err := s.currentInfo()
	if err != nil {
		return err
	}
	if purpose != kv.PurposeIndex && purpose != kv.PurposeUniqueIndex {
		return errors.New("unsupported index")
	}
	sKID, sPurpose, err := s.db.OpenExisting(storageName)
	if err != nil {
		return errors.Wrapf(err, "collection %q", storageName)
	}
	if sPurpose != kv.PurposeStorage {
		return errors.Errorf("%q is not a Storage collection", storageName)
	}

	lower, upper := kv.CollectionBounds(kid)
	it, err := s.eng.NewIterator(lower, upper)
	if err != nil {
		return err
	}
	defer it.Close()

	var missing [][]byte
	for ok := it.SeekGE(lower); ok; ok = it.Next() {
		key := it.Key()
		raw := key[1:]
		var docID document.DocID
		if purpose == kv.PurposeUniqueIndex {
			id, _, err := document.DecodeStorageValue(it.Value())
			if err != nil {
				return err
			}
			docID = id
		} else {
			if len(raw) < 8 {
				continue
			}
			docID = document.DocID(binary.BigEndian.Uint64(raw[len(raw)-8:]))
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(docID))
		_, found, err := s.eng.Get(kv.RowKey(sKID, buf[:]))
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(s.out, "Document %d missing, key erase %s\n", docID, makePrintable(raw))
			missing = append(missing, append([]byte(nil), key...))
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	if len(missing) == 0 {
		fmt.Fprintln(s.out, "No problems found")
		return nil
	}
	if !confirm("Confirm you want to commit changes (type 'yes'): ") {
		return nil
	}
	wb := s.eng.NewWriteBatch()
	for _, k := range missing {
		if err := wb.Delete(k); err != nil {
			wb.Discard()
			return err
		}
	}
	if err := wb.Commit(true); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Successfully committed")
	return nil
}

func runChkstorage(s *Session) error {
	kid, purpose, err := s.currentInfo()
	if err != nil {
		return err
	}
	if purpose != kv.PurposeStorage {
		return errors.New("current collection must be 'Storage'")
	}
	lower, upper := kv.CollectionBounds(kid)
	it, err := s.eng.NewIterator(lower, upper)
	if err != nil {
		return err
	}
	defer it.Close()

	var invalid [][]byte
	for ok := it.SeekGE(lower); ok; ok = it.Next() {
		key := it.Key()
		if len(key) != 9 {
			fmt.Fprintf(s.out, "Deleting invalid row: %s\n", makePrintable(key))
			invalid = append(invalid, append([]byte(nil), key...))
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	if len(invalid) == 0 {
		return nil
	}
	wb := s.eng.NewWriteBatch()
	for _, k := range invalid {
		if err := wb.Delete(k); err != nil {
			wb.Discard()
			return err
		}
	}
	return wb.Commit(true)
}

func runLevels(s *Session) error {
	tables := s.db.List("", false)
	var total uint64
	for _, t := range tables {
		total += t.ApproxSize
	}
	fmt.Fprintf(s.out, "Collections: %d  Approx total size: %d bytes\n", len(tables), total)
	fmt.Fprintln(s.out, "(per-level SST statistics are an MDBX/LevelDB-specific detail kv.Engine doesn't expose)")
	return nil
}

// confirmStdin reads a line from stdin and reports whether it reads "yes",
// mirroring manage_db.cpp's inline std::getline confirmation prompts.
func confirmStdin(r *bufio.Reader, w interface{ Write([]byte) (int, error) }) func(string) bool {
	return func(prompt string) bool {
		fmt.Fprint(w, prompt)
		line, _ := r.ReadString('\n')
		return trimNL(line) == "yes"
	}
}

func trimNL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
