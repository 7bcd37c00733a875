// SPDX-License-Identifier: Apache-2.0

// Package sources holds the table.Source implementations: delimited files
// and the remote Airtable service.
package sources
