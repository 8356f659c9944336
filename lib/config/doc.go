// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the nodescope daemon configuration.
//
// Configuration is read from a single file named by either the
// NODESCOPE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no search path and no environment
// variable overrides individual values. Files ending in .json or
// .jsonc are read as JSON with comments and trailing commas; anything
// else is YAML.
//
// The file may carry development, staging, and production sections
// that override base values when [Config].Environment matches.
// Production without an explicit section logs JSON at info level.
//
// ${HOME}, ${XDG_RUNTIME_DIR} and ${VAR:-default} patterns are
// expanded in the control socket path after loading.
//
// Durations use Go syntax ("40ms", "2s").
package config
