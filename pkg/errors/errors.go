// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

// Package errors defines the machine-readable error codes used across
// vecat and helpers for classifying and HTTP-mapping them. All errors
// produced by the index, metadata store, and catalog carry a Code so
// callers can branch on failure class instead of string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeIndexDimensionMismatch  Code = "index.insert.dimension_mismatch"
	CodeIndexBatchArityMismatch Code = "index.batch.arity_mismatch"
	CodeIndexEntryNotFound      Code = "index.entry.not_found"
	CodeIndexRemoveUnsupported  Code = "index.remove.unsupported"
	CodeIndexInsertUnsupported  Code = "index.insert.unsupported"
	CodeIndexInvalidID          Code = "index.id.invalid_input"
	CodeIndexDuplicateID        Code = "index.insert.conflict"
	CodeIndexSnapshotIOFailure  Code = "index.snapshot.io_failure"
	CodeIndexSnapshotCorrupt    Code = "index.snapshot.invalid_format"

	CodeStoreRecordNotFound  Code = "store.record.not_found"
	CodeStoreDatabaseFailure Code = "store.database.failure"
	CodeStoreInvalidInput    Code = "store.invalid_input"

	CodeCatalogOrphanedVector    Code = "catalog.add.orphaned_vector"
	CodeCatalogBatchInvalid      Code = "catalog.batch.invalid_input"
	CodeCatalogDeleteUnsupported Code = "catalog.delete.unsupported"
	CodeCatalogRecordNotFound    Code = "catalog.record.not_found"

	CodeRemoteSchemaFailure   Code = "remote.schema.upstream_failure"
	CodeRemoteRequestFailure  Code = "remote.request.upstream_failure"
	CodeRemoteResponseInvalid Code = "remote.response.invalid"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerConfigInvalid   Code = "server.config.invalid_value"
	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldEmbedID(value int64) Attr {
	return Field("embed_id", value)
}

func FieldRecordID(value int64) Attr {
	return Field("record_id", value)
}

func FieldDimension(value int) Attr {
	return Field("dimension", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsDimensionMismatch(err error) bool {
	return reason(CodeOf(err)) == "dimension_mismatch"
}

func IsArityMismatch(err error) bool {
	return reason(CodeOf(err)) == "arity_mismatch"
}

func IsUnsupported(err error) bool {
	return reason(CodeOf(err)) == "unsupported"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

// IsOrphanedVector reports whether err marks the cross-store partial
// failure where a vector was committed but its metadata write failed.
func IsOrphanedVector(err error) bool {
	return reason(CodeOf(err)) == "orphaned_vector"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" ||
		r == "invalid_format" || r == "dimension_mismatch" || r == "arity_mismatch"
}

func IsStorageFailure(err error) bool {
	code := string(CodeOf(err))
	r := reason(CodeOf(err))
	return r == "io_failure" || (r == "failure" && strings.Contains(code, "database"))
}

func IsUpstreamFailure(err error) bool {
	return reason(CodeOf(err)) == "upstream_failure"
}

// HTTPStatus maps an error code to the status the server layer should
// return. Unknown codes map to 500.
func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUnsupported(err):
		return http.StatusMethodNotAllowed
	case IsOrphanedVector(err):
		// The vector committed but metadata did not; the caller must
		// reconcile, so this is not a clean client error.
		return http.StatusInternalServerError
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
