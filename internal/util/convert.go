// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strconv"

// IntToStr converts an int to its decimal string form.
func IntToStr(i int) string {
	return strconv.Itoa(i)
}
