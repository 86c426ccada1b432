package service

import (
	"context"
	"errors"
	"testing"

	"subjecthub/internal/blobstore"
	"subjecthub/internal/models"
	"subjecthub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionService_StoresBlobThenSubject(t *testing.T) {
	db := setupSQLiteDB(t)
	subjects := repository.NewSubjectRepository(db)

	var stored []byte
	blobs := &blobStoreStub{
		putFn: func(_ context.Context, obj blobstore.Object) (string, error) {
			stored = readAll(t, obj.Body)
			return "abc.png", nil
		},
	}
	svc := NewSubmissionService(subjects, blobs)

	subject, err := svc.SubmitSubject(context.Background(), SubjectInput{
		Title:       "Astronomy",
		LinkToCall:  "https://meet.example.com/astro",
		Description: "Stars",
		Details:     map[string]string{"level": "intro"},
	}, testUpload())
	require.NoError(t, err)

	assert.NotZero(t, subject.ID)
	assert.Equal(t, "abc.png", subject.Image)
	assert.Equal(t, []byte("png"), stored)
	assert.Empty(t, blobs.deleted)

	total, err := subjects.Count(context.Background(), repository.SubjectFilter{Search: "astro"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSubmissionService_BlobFailureWritesNothing(t *testing.T) {
	t.Parallel()

	created := false
	subjects := &subjectRepoStub{
		createFn: func(context.Context, *models.Subject) error {
			created = true
			return nil
		},
	}
	blobs := &blobStoreStub{
		putFn: func(context.Context, blobstore.Object) (string, error) {
			return "", errors.New("bucket unavailable")
		},
	}

	_, err := NewSubmissionService(subjects, blobs).SubmitSubject(context.Background(), SubjectInput{Title: "x"}, testUpload())
	assert.ErrorIs(t, err, models.ErrSubmissionFailed)
	assert.False(t, created)
	assert.Empty(t, blobs.deleted)
}

func TestSubmissionService_CreateFailureRemovesBlob(t *testing.T) {
	t.Parallel()

	subjects := &subjectRepoStub{
		createFn: func(context.Context, *models.Subject) error {
			return models.NewStoreError(errors.New("constraint failed"))
		},
	}
	blobs := &blobStoreStub{
		putFn: func(context.Context, blobstore.Object) (string, error) { return "orphan.png", nil },
	}

	subject, err := NewSubmissionService(subjects, blobs).SubmitSubject(context.Background(), SubjectInput{Title: "x"}, testUpload())
	assert.Nil(t, subject)
	assert.ErrorIs(t, err, models.ErrSubmissionFailed)
	assert.Equal(t, []string{"orphan.png"}, blobs.deleted)
}

func TestSubmissionService_CleanupFailureStillReportsSubmissionFailed(t *testing.T) {
	t.Parallel()

	subjects := &subjectRepoStub{
		createFn: func(context.Context, *models.Subject) error { return errors.New("insert failed") },
	}
	blobs := &blobStoreStub{
		putFn:    func(context.Context, blobstore.Object) (string, error) { return "orphan.png", nil },
		deleteFn: func(context.Context, string) error { return errors.New("permission denied") },
	}

	_, err := NewSubmissionService(subjects, blobs).SubmitSubject(context.Background(), SubjectInput{Title: "x"}, testUpload())
	assert.ErrorIs(t, err, models.ErrSubmissionFailed)
	assert.Equal(t, []string{"orphan.png"}, blobs.deleted)
}
