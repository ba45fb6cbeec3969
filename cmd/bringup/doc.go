// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for bringup.
//
// The root command is the provisioning run itself; subcommands expose
// read-only views of the same machinery: capability detection, the
// resolved configuration, and env file lookups.
package cmd
