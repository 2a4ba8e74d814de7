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

package csvload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvdoc/kvdoc/document"
	"github.com/kvdoc/kvdoc/internal/jsoncodec"
	"github.com/kvdoc/kvdoc/kv"
	"github.com/kvdoc/kvdoc/kv/memkv"
)

func TestLoadPutsOneDocumentPerRow(t *testing.T) {
	eng := memkv.New()
	db, err := kv.NewDatabase(eng)
	require.NoError(t, err)
	storage, err := document.Open(db, "people")
	require.NoError(t, err)

	csv := "name,age\nalice,30\nbob,25\n"
	count, err := Load(db.Engine(), storage, jsoncodec.New(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 2, count)

	doc, ok, err := storage.Get(db.Engine(), 1)
	require.NoError(t, err)
	require.True(t, ok)

	var row map[string]string
	require.NoError(t, jsoncodec.New().Decode(doc.Data, &row))
	require.Equal(t, "alice", row["name"])
	require.Equal(t, "30", row["age"])
}

func TestLoadEmptyReaderIsNoop(t *testing.T) {
	eng := memkv.New()
	db, err := kv.NewDatabase(eng)
	require.NoError(t, err)
	storage, err := document.Open(db, "people")
	require.NoError(t, err)

	count, err := Load(db.Engine(), storage, jsoncodec.New(), strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
