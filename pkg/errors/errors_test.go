// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := vecaterr.New(
		vecaterr.CodeIndexDimensionMismatch,
		"vector has wrong dimension",
		vecaterr.FieldDimension(384),
		vecaterr.Field("got", 3),
	)

	require.Error(t, err)
	assert.Equal(t, vecaterr.CodeIndexDimensionMismatch, vecaterr.CodeOf(err))
	assert.Equal(t, 384, vecaterr.FieldsOf(err)["dimension"])
	assert.Equal(t, 3, vecaterr.FieldsOf(err)["got"])
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := vecaterr.Wrap(cause, vecaterr.CodeIndexSnapshotIOFailure, "persisting snapshot")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, vecaterr.CodeIndexSnapshotIOFailure, vecaterr.CodeOf(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, vecaterr.Wrap(nil, vecaterr.CodeStoreDatabaseFailure, "ignored"))
	assert.NoError(t, vecaterr.Wrapf(nil, vecaterr.CodeStoreDatabaseFailure, "ignored"))
	assert.NoError(t, vecaterr.With(nil))
}

func TestWrapfFormatsMessage(t *testing.T) {
	cause := stderrors.New("boom")
	err := vecaterr.Wrapf(cause, vecaterr.CodeStoreDatabaseFailure, "upserting embed_id %d: %w", int64(7), cause)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting embed_id 7")
}

func TestClassificationHelpers(t *testing.T) {
	tests := []struct {
		name  string
		code  vecaterr.Code
		check func(error) bool
	}{
		{"not found", vecaterr.CodeIndexEntryNotFound, vecaterr.IsNotFound},
		{"dimension mismatch", vecaterr.CodeIndexDimensionMismatch, vecaterr.IsDimensionMismatch},
		{"arity mismatch", vecaterr.CodeIndexBatchArityMismatch, vecaterr.IsArityMismatch},
		{"unsupported", vecaterr.CodeIndexRemoveUnsupported, vecaterr.IsUnsupported},
		{"orphaned vector", vecaterr.CodeCatalogOrphanedVector, vecaterr.IsOrphanedVector},
		{"conflict", vecaterr.CodeIndexDuplicateID, vecaterr.IsConflict},
		{"upstream", vecaterr.CodeRemoteRequestFailure, vecaterr.IsUpstreamFailure},
		{"storage io", vecaterr.CodeIndexSnapshotIOFailure, vecaterr.IsStorageFailure},
		{"database", vecaterr.CodeStoreDatabaseFailure, vecaterr.IsStorageFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vecaterr.New(tt.code, "test")
			assert.True(t, tt.check(err))
		})
	}
}

func TestClassificationRejectsOtherCodes(t *testing.T) {
	err := vecaterr.New(vecaterr.CodeServerInternalFailure, "test")
	assert.False(t, vecaterr.IsNotFound(err))
	assert.False(t, vecaterr.IsDimensionMismatch(err))
	assert.False(t, vecaterr.IsUnsupported(err))
	assert.False(t, vecaterr.IsOrphanedVector(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code vecaterr.Code
		want int
	}{
		{vecaterr.CodeIndexEntryNotFound, http.StatusNotFound},
		{vecaterr.CodeCatalogRecordNotFound, http.StatusNotFound},
		{vecaterr.CodeIndexDimensionMismatch, http.StatusBadRequest},
		{vecaterr.CodeIndexBatchArityMismatch, http.StatusBadRequest},
		{vecaterr.CodeServerRequestInvalid, http.StatusBadRequest},
		{vecaterr.CodeIndexRemoveUnsupported, http.StatusMethodNotAllowed},
		{vecaterr.CodeIndexDuplicateID, http.StatusConflict},
		{vecaterr.CodeCatalogOrphanedVector, http.StatusInternalServerError},
		{vecaterr.CodeRemoteRequestFailure, http.StatusBadGateway},
		{vecaterr.CodeIndexSnapshotIOFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := vecaterr.New(tt.code, "test")
			assert.Equal(t, tt.want, vecaterr.HTTPStatus(err))
		})
	}
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, vecaterr.Code(""), vecaterr.CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, vecaterr.Code(""), vecaterr.CodeOf(nil))
}

func TestJoinCombinesErrors(t *testing.T) {
	first := vecaterr.New(vecaterr.CodeStoreDatabaseFailure, "first")
	second := stderrors.New("second")

	joined := vecaterr.Join(first, second)
	require.Error(t, joined)
	assert.ErrorIs(t, joined, second)
	assert.Contains(t, joined.Error(), "first")
}
