// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2ondisk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirhash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want uint64
	}{
		{"", 0x8000_0000_0000_8000},
		{"hammer2", 0x9f2f_13b5_8c9a_8000},
		{"A", 0xe16d_cdee_2c83_8000},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Dirhash([]byte(tt.name)))
		})
	}
}

// Bit 15 of every dirhash is reserved for "." and ".." readdir
// cookies (spec.md §4.8/GLOSSARY), so no real name may ever hash into
// the low 0x0000-0x7fff range.
func TestDirhashReservesLowRange(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "a", "hammer2", "A", "foo.bar_baz-qux~quux"} {
		assert.NotZero(t, Dirhash([]byte(name))&0x8000, "name %q", name)
	}
}
