package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/sma-tests-api/internal/grading"
	"github.com/noah-isme/sma-tests-api/internal/repository"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

// storeError maps repository failures onto API errors. entity names the
// resource in not-found messages; action completes "failed to ...".
func storeError(err error, entity, action string) error {
	var syncErr *repository.RowSyncError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	case errors.As(err, &syncErr):
		return appErrors.Wrap(err, appErrors.ErrRowSync.Code, appErrors.ErrRowSync.Status, appErrors.ErrRowSync.Message)
	case errors.Is(err, repository.ErrAssignmentWritten):
		return appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "group has already written the test")
	case errors.Is(err, repository.ErrResultAboveMax):
		return appErrors.Wrap(err, appErrors.ErrScoreOutOfRange.Code, appErrors.ErrScoreOutOfRange.Status, "stored results exceed the new max points")
	case errors.Is(err, repository.ErrLevelConflict):
		return appErrors.Wrap(err, appErrors.ErrLevelConsistency.Code, appErrors.ErrLevelConsistency.Status, "stored results would break level consistency")
	case errors.Is(err, repository.ErrReferenced):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, entity+" is still referenced")
	case errors.Is(err, repository.ErrDuplicateKey):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, entity+" already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+action)
}

var kindErrors = map[grading.Kind]*appErrors.Error{
	grading.KindUnknownTask:       appErrors.ErrValidation,
	grading.KindScoreOutOfRange:   appErrors.ErrScoreOutOfRange,
	grading.KindPartialSubmission: appErrors.ErrPartialSubmission,
	grading.KindLevelConsistency:  appErrors.ErrLevelConsistency,
}

// rejection converts a batch validation failure into an API error that carries
// the structured failure as details.
func rejection(err *grading.ValidationError) *appErrors.Error {
	template, ok := kindErrors[err.Kind]
	if !ok {
		template = appErrors.ErrValidation
	}
	return appErrors.WithDetails(appErrors.Clone(template, err.Message), err)
}
