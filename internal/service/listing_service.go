package service

import (
	"context"
	"strconv"

	"subjecthub/internal/models"
	"subjecthub/internal/observability"
	"subjecthub/internal/repository"
)

// DefaultPageSize is the number of subjects shown per listing page.
const DefaultPageSize = 6

type ListingService struct {
	subjects repository.SubjectRepository
	pageSize int
}

func NewListingService(subjects repository.SubjectRepository, pageSize int) *ListingService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ListingService{subjects: subjects, pageSize: pageSize}
}

// PageSize returns the configured page size.
func (s *ListingService) PageSize() int {
	return s.pageSize
}

// ListSubjects returns one page of subjects matching the search text.
// Page 1 is always valid; any page past the last one is INVALID_PAGE.
func (s *ListingService) ListSubjects(ctx context.Context, q models.ListingQuery) (_ *models.ListingPage, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ListingService", "ListSubjects")
	defer func() {
		observability.EndSpan(span, err)
		observability.ListingRequests.WithLabelValues(outcomeOf(err)).Inc()
	}()

	page, err := parsePage(q.RawPage)
	if err != nil {
		return nil, err
	}

	filter := repository.SubjectFilter{Search: q.RawSearch}

	total, err := s.subjects.Count(ctx, filter)
	if err != nil {
		return nil, models.AsAppError(err)
	}

	totalPages := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))
	if page > max(totalPages, 1) {
		return nil, models.NewInvalidPageError(q.RawPage)
	}

	items, err := s.subjects.FindPage(ctx, filter, (page-1)*s.pageSize, s.pageSize)
	if err != nil {
		return nil, models.AsAppError(err)
	}
	if items == nil {
		items = []models.Subject{}
	}

	return &models.ListingPage{
		Items:       items,
		TotalPages:  totalPages,
		CurrentPage: page,
		SearchText:  q.RawSearch,
	}, nil
}

// parsePage accepts an empty string (page 1) or a base-10 positive integer.
func parsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.ParseUint(raw, 10, 31)
	if err != nil || n == 0 {
		return 0, models.NewInvalidPageError(raw)
	}
	return int(n), nil
}
