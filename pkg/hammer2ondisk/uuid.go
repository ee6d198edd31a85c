// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2ondisk

import "github.com/google/uuid"

// HAMMER2 stores its UUIDs in DCE byte order (the first three fields
// are little-endian on disk) while the textual form spec.md quotes
// for FSTypeUUIDString, like every other UUID string, reads those
// fields big-endian. swapDCE exchanges between the two
// representations; it is its own inverse, since both directions swap
// the same three field widths (4, 2, 2 bytes).
func swapDCE(b [16]byte) [16]byte {
	var out [16]byte
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	copy(out[8:], b[8:])
	return out
}

// ParseOndiskUUID parses the textual UUID form used for
// FSTypeUUIDString and returns the byte sequence HAMMER2 stores
// on-disk for it.
func ParseOndiskUUID(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, err
	}
	return swapDCE([16]byte(u)), nil
}

// FormatOndiskUUID is the inverse of ParseOndiskUUID: given the raw
// bytes read from an on-disk fsid/fstype field, it returns the
// standard textual UUID form.
func FormatOndiskUUID(raw uuid.UUID) string {
	return uuid.UUID(swapDCE([16]byte(raw))).String()
}
