// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the file involved and
// remediation hints. Issues are Markdown guidance rendered with glamour when
// the CLI runs verbosely.
package issue
