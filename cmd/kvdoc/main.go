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

// Command kvdoc is the interactive database-management tool manage_db.cpp
// was distilled from: open a database, browse its collections, and run the
// operator commands in commands.go. A non-interactive "load" subcommand
// fills the role the original split into a separate program, load_table.cpp:
// bulk-import a CSV file straight into a Storage collection.
package main

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/internal/csvload"
	"github.com/kvdoc/kvdoc/internal/jsoncodec"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kv/mdbxkv"
	"github.com/kvdoc/kvdoc/kv/memkv"
	"github.com/kvdoc/kvdoc/kvlog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log := kvlog.New("kvdoc")

	var (
		configPath string
		readOnly   bool
		mapSize    string
		inMemory   bool
	)

	root := &cobra.Command{
		Use:          "kvdoc <database-path>",
		Short:        "browse and manage a kvdoc database",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, dbArgs []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if readOnly {
				cfg.ReadOnly = true
			}
			if mapSize != "" {
				var sz datasize.ByteSize
				if err := sz.UnmarshalText([]byte(mapSize)); err != nil {
					return errors.Wrap(err, "invalid -s map size")
				}
				cfg.MapSize = sz
			}

			db, closeFn, err := openDatabase(dbArgs[0], cfg, inMemory)
			if err != nil {
				return err
			}
			defer closeFn()

			sess, err := NewSession(db, os.Stdout, os.Stderr)
			if err != nil {
				return err
			}
			if err := runREPL(sess, os.Stdin, os.Stdout); err != nil {
				return err
			}
			return nil
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")
	root.Flags().BoolVarP(&readOnly, "read-only", "r", false, "open the database read-only")
	root.Flags().StringVarP(&mapSize, "map-size", "s", "", "MDBX map size, e.g. 4GB")
	root.Flags().BoolVar(&inMemory, "memory", false, "use an in-memory engine instead of MDBX (testing/demo)")

	root.AddCommand(newLoadCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kvdoc:", err)
		log.Error("command failed", "err", err)
		return 1
	}
	return 0
}

func openDatabase(path string, cfg Config, inMemory bool) (db *kv.Database, closeFn func(), err error) {
	var eng kv.Engine
	if inMemory {
		eng = memkv.New()
	} else {
		eng, err = mdbxkv.Open(mdbxkv.Config{Path: path, MapSize: cfg.MapSize, ReadOnly: cfg.ReadOnly})
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open database %s", path)
		}
	}
	db, err = kv.NewDatabase(eng)
	if err != nil {
		eng.Close()
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

// newLoadCommand wires internal/csvload and internal/jsoncodec to a CLI
// entry point, the role load_table.cpp played as its own program in the
// original: "kvdoc load <database-path> <collection> <file.csv>".
func newLoadCommand() *cobra.Command {
	var inMemory bool
	cmd := &cobra.Command{
		Use:   "load <database-path> <collection> <csv-file>",
		Short: "bulk-load a CSV file into a Storage collection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := defaultConfig()
			db, closeFn, err := openDatabase(args[0], cfg, inMemory)
			if err != nil {
				return err
			}
			defer closeFn()

			storage, err := document.Open(db, args[1])
			if err != nil {
				return errors.Wrapf(err, "open collection %q", args[1])
			}

			f, err := os.Open(args[2])
			if err != nil {
				return errors.Wrapf(err, "open %s", args[2])
			}
			defer f.Close()

			count, err := csvload.Load(db.Engine(), storage, jsoncodec.New(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d document(s) into %q\n", count, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "use an in-memory engine instead of MDBX (testing/demo)")
	return cmd
}
