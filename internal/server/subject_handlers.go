package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"subjecthub/internal/blobstore"
	"subjecthub/internal/models"
	"subjecthub/internal/service"

	"github.com/gofiber/fiber/v2"
)

type subjectResponse struct {
	models.Subject
	ImageURL string `json:"image_url"`
}

type listingResponse struct {
	Items       []subjectResponse `json:"items"`
	TotalPages  int               `json:"total_pages"`
	CurrentPage int               `json:"current_page"`
	PageSize    int               `json:"page_size"`
	SearchText  string            `json:"search_text"`
}

func (s *Server) toSubjectResponse(subject models.Subject) subjectResponse {
	return subjectResponse{Subject: subject, ImageURL: s.blobs.URL(subject.Image)}
}

func listingQuery(c *fiber.Ctx) models.ListingQuery {
	return models.ListingQuery{
		RawPage:   c.Query("page"),
		RawSearch: c.Query("search"),
	}
}

// ListSubjectsPage renders one page of subjects. Out-of-range or malformed
// pages redirect to the canonical listing URL.
func (s *Server) ListSubjectsPage(c *fiber.Ctx) error {
	page, err := s.listing.ListSubjects(c.UserContext(), listingQuery(c))
	if err != nil {
		if errors.Is(err, models.ErrInvalidPage) {
			return c.Redirect("/subjects", fiber.StatusSeeOther)
		}
		return s.renderError(c, err)
	}

	return c.Render("subjects/index", s.viewData(c, fiber.Map{
		"Title":   "Subjects",
		"Page":    page,
		"HasPrev": page.CurrentPage > 1,
		"HasNext": page.CurrentPage < page.TotalPages,
	}))
}

// NewSubjectPage renders the submission form.
func (s *Server) NewSubjectPage(c *fiber.Ctx) error {
	return c.Render("subjects/new", s.viewData(c, fiber.Map{
		"Title": "New subject",
		"Form":  fiber.Map{},
	}))
}

// CreateSubjectPage handles the submission form.
func (s *Server) CreateSubjectPage(c *fiber.Ctx) error {
	form := fiber.Map{
		"Title":       c.FormValue("title"),
		"LinkToCall":  c.FormValue("link_to_call"),
		"Description": c.FormValue("description"),
		"Details":     c.FormValue("details"),
	}

	rerender := func(err error) error {
		s.logIfUnexpected(c, "subject submission failed", err)
		message, field := formError(err)
		return c.Status(models.StatusFor(err)).Render("subjects/new", s.viewData(c, fiber.Map{
			"Title":      "New subject",
			"Form":       form,
			"Error":      message,
			"ErrorField": field,
		}))
	}

	in, upload, err := s.readSubmission(c)
	if err != nil {
		return rerender(err)
	}
	if _, err := s.submission.SubmitSubject(c.UserContext(), in, upload); err != nil {
		return rerender(err)
	}
	return c.Redirect("/subjects", fiber.StatusSeeOther)
}

// ListSubjectsAPI returns one page of subjects as JSON.
func (s *Server) ListSubjectsAPI(c *fiber.Ctx) error {
	page, err := s.listing.ListSubjects(c.UserContext(), listingQuery(c))
	if err != nil {
		return s.respondError(c, err)
	}

	items := make([]subjectResponse, 0, len(page.Items))
	for _, subject := range page.Items {
		items = append(items, s.toSubjectResponse(subject))
	}
	return c.JSON(listingResponse{
		Items:       items,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		PageSize:    s.listing.PageSize(),
		SearchText:  page.SearchText,
	})
}

// CreateSubjectAPI accepts the same multipart form as the HTML page.
func (s *Server) CreateSubjectAPI(c *fiber.Ctx) error {
	in, upload, err := s.readSubmission(c)
	if err != nil {
		return s.respondError(c, err)
	}
	subject, err := s.submission.SubmitSubject(c.UserContext(), in, upload)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.toSubjectResponse(*subject))
}

// readSubmission extracts the subject fields and the validated image upload.
func (s *Server) readSubmission(c *fiber.Ctx) (service.SubjectInput, blobstore.Object, error) {
	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		return service.SubjectInput{}, blobstore.Object{}, models.NewValidationError("title", "Title is required")
	}

	details, err := parseDetails(c.FormValue("details"))
	if err != nil {
		return service.SubjectInput{}, blobstore.Object{}, err
	}

	upload, err := s.readUpload(c)
	if err != nil {
		return service.SubjectInput{}, blobstore.Object{}, err
	}

	return service.SubjectInput{
		Title:       title,
		LinkToCall:  strings.TrimSpace(c.FormValue("link_to_call")),
		Description: c.FormValue("description"),
		Details:     details,
	}, upload, nil
}

func (s *Server) readUpload(c *fiber.Ctx) (blobstore.Object, error) {
	maxBytes := int64(s.config.UploadMaxSizeMB) * 1024 * 1024

	fh, err := c.FormFile("image")
	if err != nil {
		return blobstore.Object{}, models.NewValidationError("image", "An image file is required")
	}
	if fh.Size > maxBytes {
		return blobstore.Object{}, models.NewValidationError("image", fmt.Sprintf("Image too large (max %dMB)", s.config.UploadMaxSizeMB))
	}

	f, err := fh.Open()
	if err != nil {
		return blobstore.Object{}, models.NewSubmissionFailedError(err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return blobstore.Object{}, models.NewSubmissionFailedError(err)
	}

	return blobstore.PrepareImage(fh.Filename, fh.Header.Get(fiber.HeaderContentType), content, maxBytes)
}

// parseDetails accepts either a JSON object of strings or "key: value" lines.
func parseDetails(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if strings.HasPrefix(raw, "{") {
		var details map[string]string
		if err := json.Unmarshal([]byte(raw), &details); err != nil {
			return nil, models.NewValidationError("details", "Details must be a JSON object of strings")
		}
		return details, nil
	}

	details := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, models.NewValidationError("details", fmt.Sprintf("Invalid details line %q, expected \"key: value\"", line))
		}
		details[key] = strings.TrimSpace(value)
	}
	return details, nil
}
