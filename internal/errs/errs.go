// SPDX-License-Identifier: Apache-2.0

// Package errs defines the error taxonomy shared by the migration packages.
// Components wrap one of these sentinels with context; callers classify
// failures with errors.Is.
package errs

import "errors"

var (
	// ErrConfiguration marks a missing or malformed configuration document or
	// field-definition reference. Fatal before any ingestion happens.
	ErrConfiguration = errors.New("configuration error")
	// ErrMalformedSourceURL marks a remote source URL without the required
	// base and table path segments.
	ErrMalformedSourceURL = errors.New("malformed source URL")
	// ErrUnknownRecordType marks a record type outside manuscript_objects,
	// layers and text_units.
	ErrUnknownRecordType = errors.New("unknown record type")
	// ErrSourceUnavailable marks a file-open or network failure while ingesting a table.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSchemaFetch marks a schema document that could not be fetched or compiled.
	ErrSchemaFetch = errors.New("schema fetch error")
	// ErrFieldConversion marks a field value that does not fit its configured type.
	ErrFieldConversion = errors.New("field conversion error")
	// ErrMalformedTable marks a table document whose header row is missing,
	// repeats a column, or is shorter than one of its rows.
	ErrMalformedTable = errors.New("malformed table")
	// ErrInvalidRecordID marks a source record whose id is empty or repeated
	// within its table.
	ErrInvalidRecordID = errors.New("invalid record id")
	// ErrRecordFileConflict marks two arks of one record type that map to the
	// same output file name.
	ErrRecordFileConflict = errors.New("record file name conflict")
	// ErrMissingArk marks a transformed record without an ark identifier.
	ErrMissingArk = errors.New("record has no ark")
)
