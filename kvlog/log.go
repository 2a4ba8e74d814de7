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

// Package kvlog wraps erigon-lib's structured logger with the bracketed
// component-prefix convention used throughout the teacher codebase (see
// turbo/snapshotsync's "[OtterSync] ..." style messages), so every kvdoc
// component logs through the same shape without repeating the prefix logic.
package kvlog

import (
	"fmt"

	"github.com/erigontech/erigon-lib/log/v3"
)

// Logger is a structured, leveled logger prefixed with its owning component.
type Logger struct {
	component string
	base      log.Logger
}

// New returns a Logger for component, rooted at the package-default logger.
// Embedding applications that want their own sink should use NewWithBase.
func New(component string) Logger {
	return Logger{component: component, base: log.Root()}
}

// NewWithBase lets an embedding application redirect kvdoc's logging into its
// own log.Logger (mirrors the `log log.Logger` field pattern used by Erigon's
// RPC/sync components).
func NewWithBase(component string, base log.Logger) Logger {
	return Logger{component: component, base: base}
}

func (l Logger) prefixed(msg string) string {
	return fmt.Sprintf("[%s] %s", l.component, msg)
}

func (l Logger) Info(msg string, ctx ...interface{})  { l.base.Info(l.prefixed(msg), ctx...) }
func (l Logger) Warn(msg string, ctx ...interface{})  { l.base.Warn(l.prefixed(msg), ctx...) }
func (l Logger) Error(msg string, ctx ...interface{}) { l.base.Error(l.prefixed(msg), ctx...) }
func (l Logger) Debug(msg string, ctx ...interface{}) { l.base.Debug(l.prefixed(msg), ctx...) }
