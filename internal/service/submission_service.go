package service

import (
	"context"
	"log/slog"

	"subjecthub/internal/blobstore"
	"subjecthub/internal/middleware"
	"subjecthub/internal/models"
	"subjecthub/internal/observability"
	"subjecthub/internal/repository"
)

type SubjectInput struct {
	Title       string
	LinkToCall  string
	Description string
	Details     map[string]string
}

type SubmissionService struct {
	subjects repository.SubjectRepository
	blobs    blobstore.Store
}

func NewSubmissionService(subjects repository.SubjectRepository, blobs blobstore.Store) *SubmissionService {
	return &SubmissionService{subjects: subjects, blobs: blobs}
}

// SubmitSubject stores the image, then inserts the subject referencing it.
// If the insert fails the image is removed again and no subject exists.
func (s *SubmissionService) SubmitSubject(ctx context.Context, in SubjectInput, upload blobstore.Object) (_ *models.Subject, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SubmissionService", "SubmitSubject")
	defer func() {
		observability.EndSpan(span, err)
		observability.Submissions.WithLabelValues(outcomeOf(err)).Inc()
	}()

	key, err := s.blobs.Put(ctx, upload)
	if err != nil {
		return nil, models.NewSubmissionFailedError(err)
	}

	subject := &models.Subject{
		Title:       in.Title,
		LinkToCall:  in.LinkToCall,
		Description: in.Description,
		Details:     in.Details,
		Image:       key,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove orphaned upload",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, models.NewSubmissionFailedError(err)
	}

	return subject, nil
}
