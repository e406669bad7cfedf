// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across packages.
//
// The main export is AtomicWriteFile, used everywhere a state or config
// file is persisted so a crash mid-write cannot corrupt it.
package util
