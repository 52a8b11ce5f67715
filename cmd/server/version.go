// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package main

// version is overridden at build time via
// -ldflags "-X main.version=...".
var version = "dev"
