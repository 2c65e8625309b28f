package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"freelance-market/internal/event"
	"freelance-market/internal/metrics"
	"freelance-market/internal/model"
	"freelance-market/internal/util"
	"freelance-market/pkg/apierror"
)

// UploadURLPrefix is the public path under which stored files are referenced.
const UploadURLPrefix = "/uploads/"

const sniffLen = 512

// UploadedFile is one file part of a multipart request.
type UploadedFile struct {
	Field  string
	Name   string
	Reader io.Reader
}

type DeliverableService struct {
	deliverables DeliverableStore
	projects     ProjectStore
	users        UserStore
	files        FileStore
	audit        *AuditService
	bus          event.Bus
	maxSize      int64
	allowedMIME  []string
}

func NewDeliverableService(
	deliverables DeliverableStore,
	projects ProjectStore,
	users UserStore,
	files FileStore,
	audit *AuditService,
	bus event.Bus,
	maxSize int64,
	allowedMIME []string,
) *DeliverableService {
	return &DeliverableService{
		deliverables: deliverables,
		projects:     projects,
		users:        users,
		files:        files,
		audit:        audit,
		bus:          bus,
		maxSize:      maxSize,
		allowedMIME:  allowedMIME,
	}
}

// Upload stores a file, a link, or both for a project. Only the assigned
// seller may upload and the project status is left untouched.
func (s *DeliverableService) Upload(ctx context.Context, actor model.AuditActor, projectID string, file *UploadedFile, link string) (model.Deliverable, error) {
	if err := requireCapability(actor, model.OpUploadDeliverable); err != nil {
		return model.Deliverable{}, err
	}
	if err := requireID(projectID, "project"); err != nil {
		return model.Deliverable{}, err
	}

	link = strings.TrimSpace(link)
	if file == nil && link == "" {
		return model.Deliverable{}, apierror.From(model.ErrDeliverableEmpty, func(msg string) *apierror.APIError {
			return apierror.Validation(msg, "file|link")
		})
	}
	if link != "" {
		if err := validateLink(link); err != nil {
			return model.Deliverable{}, err
		}
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return model.Deliverable{}, mapProjectErr(err, projectID)
	}
	if !project.AssignedTo(actor.UserID) {
		return model.Deliverable{}, apierror.From(model.ErrNotAssignedSeller, apierror.Forbidden)
	}

	now := time.Now().UTC()
	deliverable := model.Deliverable{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		SellerID:  actor.UserID,
		CreatedAt: now,
	}
	if link != "" {
		deliverable.Link = &link
	}

	var stored *model.StoredFile
	if file != nil {
		saved, err := s.saveFile(now, file)
		if err != nil {
			return model.Deliverable{}, err
		}
		stored = &saved
		deliverable.FileURL = &saved.URL
	}

	if err := s.deliverables.Create(ctx, deliverable); err != nil {
		if stored != nil {
			s.discard(stored.Name)
		}
		return model.Deliverable{}, err
	}

	metrics.DeliverablesUploadedTotal.WithLabelValues(deliverableKind(deliverable)).Inc()
	s.audit.Log(ctx, AuditDeliverableUpload, actor, model.AuditStatusSuccess, model.ProjectResource(projectID), nil, deliverable, "")
	publish(s.bus, event.New(event.TypeDeliverableUploaded, actor.UserID, deliverable))

	return deliverable, nil
}

// View returns the latest deliverable of a project with its seller.
func (s *DeliverableService) View(ctx context.Context, projectID string) (model.DeliverableView, error) {
	deliverable, err := s.latest(ctx, projectID)
	if err != nil {
		return model.DeliverableView{}, err
	}

	seller, err := s.users.FindByID(ctx, deliverable.SellerID)
	if err != nil {
		return model.DeliverableView{}, fmt.Errorf("load deliverable seller: %w", err)
	}

	return model.DeliverableView{
		ID:      deliverable.ID,
		FileURL: deliverable.FileURL,
		Link:    deliverable.Link,
		Seller:  seller.Public(),
	}, nil
}

// OpenFile opens the file of the latest deliverable. The caller closes it.
func (s *DeliverableService) OpenFile(ctx context.Context, projectID string) (*os.File, model.StoredFile, error) {
	deliverable, err := s.latest(ctx, projectID)
	if err != nil {
		return nil, model.StoredFile{}, err
	}
	if deliverable.FileURL == nil {
		return nil, model.StoredFile{}, apierror.NotFound("deliverable has no file", deliverable.ID)
	}

	name := strings.TrimPrefix(*deliverable.FileURL, UploadURLPrefix)
	info, err := s.files.Stat(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, model.StoredFile{}, apierror.NotFound("deliverable file is missing", name)
	}
	if err != nil {
		return nil, model.StoredFile{}, err
	}

	f, err := s.files.OpenForRead(name)
	if err != nil {
		return nil, model.StoredFile{}, err
	}

	mimeType, err := util.DetectMIME(io.LimitReader(f, sniffLen))
	if err != nil {
		mimeType = "application/octet-stream"
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, model.StoredFile{}, fmt.Errorf("rewind deliverable file: %w", err)
	}

	return f, model.StoredFile{Name: name, URL: *deliverable.FileURL, Size: info.Size(), MimeType: mimeType}, nil
}

func (s *DeliverableService) latest(ctx context.Context, projectID string) (model.Deliverable, error) {
	if err := requireID(projectID, "project"); err != nil {
		return model.Deliverable{}, err
	}

	deliverable, err := s.deliverables.LatestByProject(ctx, projectID)
	if errors.Is(err, model.ErrDeliverableNotFound) {
		return model.Deliverable{}, apierror.From(model.ErrDeliverableNotFound, func(msg string) *apierror.APIError {
			return apierror.NotFound(msg, projectID)
		})
	}
	return deliverable, err
}

func (s *DeliverableService) saveFile(now time.Time, file *UploadedFile) (model.StoredFile, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return model.StoredFile{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return model.StoredFile{}, apierror.Validation("uploaded file is empty", file.Name)
	}

	mimeType, err := util.DetectMIME(bytes.NewReader(head))
	if err != nil {
		return model.StoredFile{}, fmt.Errorf("detect upload type: %w", err)
	}
	if !util.MIMEAllowed(mimeType, s.allowedMIME) {
		return model.StoredFile{}, apierror.Validation("file type is not allowed", mimeType)
	}

	name := util.UploadFileName(now, file.Field, file.Name)
	dst, err := s.files.OpenForWrite(name)
	if errors.Is(err, os.ErrExist) {
		// Same field within the same millisecond.
		name = util.WithNameSuffix(name, uuid.NewString()[:8])
		dst, err = s.files.OpenForWrite(name)
	}
	if err != nil {
		return model.StoredFile{}, fmt.Errorf("create upload file: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), file.Reader)
	written, copyErr := io.Copy(dst, io.LimitReader(body, s.maxSize+1))
	closeErr := dst.Close()

	switch {
	case copyErr != nil:
		s.discard(name)
		return model.StoredFile{}, fmt.Errorf("write upload file: %w", copyErr)
	case closeErr != nil:
		s.discard(name)
		return model.StoredFile{}, fmt.Errorf("close upload file: %w", closeErr)
	case written > s.maxSize:
		s.discard(name)
		return model.StoredFile{}, apierror.Validation("file exceeds the maximum upload size", fmt.Sprintf("%d bytes", s.maxSize))
	}

	return model.StoredFile{Name: name, URL: UploadURLPrefix + name, Size: written, MimeType: mimeType}, nil
}

func (s *DeliverableService) discard(name string) {
	if err := s.files.RemoveAll(name); err != nil {
		slog.Warn("failed to remove orphaned upload", "name", name, "error", err)
	}
}

func validateLink(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apierror.Validation("link must be an http or https URL", raw)
	}
	return nil
}

func deliverableKind(d model.Deliverable) string {
	switch {
	case d.FileURL != nil && d.Link != nil:
		return "both"
	case d.FileURL != nil:
		return "file"
	default:
		return "link"
	}
}
