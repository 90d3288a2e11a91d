// Package errors_test provides unit tests for the AppError type, factory
// functions, and error-chain helpers defined in pkg/errors.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/datamigrate/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.ErrCodeInternal, "unexpected failure"},
		{"dataset not found", errors.ErrCodeDatasetNotFound, "dataset customers.csv not found"},
		{"bad request", errors.ErrCodeBadRequest, "source_file must not be empty"},
		{"stats inconsistent", errors.ErrCodeStatsInconsistent, "source - duplicates != migrated"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail, "Detail should be empty for bare New()")
			assert.Nil(t, ae.Cause, "Cause should be nil for bare New()")
		})
	}
}

func TestError_FormatIncludesCodeAndDetail(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeRunNotFound, "migration run not found").WithDetail("id=7f3a")
	msg := ae.Error()
	assert.True(t, strings.Contains(msg, "MIG_001"), "code must appear in Error()")
	assert.True(t, strings.Contains(msg, "migration run not found"))
	assert.True(t, strings.Contains(msg, "id=7f3a"))

	bare := errors.New(errors.ErrCodeInternal, "boom")
	assert.False(t, strings.Contains(bare.Error(), ":"), "no detail segment without Detail")
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	result := errors.Wrap(nil, errors.ErrCodeInternal, "should not matter")
	assert.Nil(t, result)
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("disk full")
	mid := errors.Wrap(root, errors.ErrCodeDatasetWriteFailed, "write cleaned output")
	top := errors.Wrap(mid, errors.ErrCodeMigrationFailed, "migrate customers.csv")

	assert.True(t, stderrors.Is(top, root), "errors.Is must traverse the chain")

	var ae *errors.AppError
	require.True(t, stderrors.As(top, &ae))
	assert.Equal(t, errors.ErrCodeMigrationFailed, ae.Code)
}

func TestWrap_UnknownCodePreservesOriginal(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeDedupThresholdInvalid, "threshold 150 out of range")
	wrapped := errors.Wrap(inner, errors.CodeUnknown, "find fuzzy duplicates")

	assert.Equal(t, errors.ErrCodeDedupThresholdInvalid, wrapped.Code)
}

func TestIsCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("handler: %w", errors.New(errors.ErrCodeMappingFileInvalid, "bad header"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMappingFileInvalid))
	assert.False(t, errors.IsCode(err, errors.ErrCodeRunNotFound))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeInternal))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"generic not found", errors.NotFound("gone"), true},
		{"dataset not found", errors.New(errors.ErrCodeDatasetNotFound, "gone"), true},
		{"run not found", errors.New(errors.ErrCodeRunNotFound, "gone"), true},
		{"report not found", errors.New(errors.ErrCodeReportNotFound, "gone"), true},
		{"conflict", errors.Conflict("busy"), false},
		{"plain error", stderrors.New("nope"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, errors.IsNotFound(tc.err))
		})
	}
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeCacheError,
		errors.GetCode(errors.New(errors.ErrCodeCacheError, "redis down")))
}

func TestWithDetailAndCause_DoNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := errors.New(errors.ErrCodeReportRenderFailed, "template error")
	detailed := base.WithDetail("format=html")
	caused := base.WithCause(stderrors.New("parse"))

	assert.Empty(t, base.Detail)
	assert.Nil(t, base.Cause)
	assert.Equal(t, "format=html", detailed.Detail)
	assert.NotNil(t, caused.Cause)

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(stderrors.New("y")))
}

func TestHTTPStatusForCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, errors.HTTPStatusForCode(errors.ErrCodeRunNotFound))
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatusForCode(errors.ErrCodeDuplicateModeInvalid))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatusForCode(errors.ErrorCode("NOPE_999")))
}

func TestModuleForCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "MIG", errors.ModuleForCode(errors.ErrCodeRunNotFound))
	assert.Equal(t, "COMMON", errors.ModuleForCode(errors.ErrCodeInternal))
	assert.Equal(t, "UNKNOWN", errors.ModuleForCode(errors.ErrorCode("")))
}

func TestClientServerClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsClientError(errors.ErrCodeDedupMetricInvalid))
	assert.False(t, errors.IsServerError(errors.ErrCodeDedupMetricInvalid))
	assert.True(t, errors.IsServerError(errors.ErrCodePipelineFailed))
}
