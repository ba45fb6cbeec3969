// SPDX-License-Identifier: MPL-2.0

// Package testutil provides shared helpers for bringup's tests: a recording
// fake for external command execution so installer and launcher logic can be
// exercised without touching real system tools, environment variable
// management with cleanup (MustSetenv, MustUnsetenv), and a process-wide
// semaphore bounding concurrent container operations in integration tests.
package testutil
