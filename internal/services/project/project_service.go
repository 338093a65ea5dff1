package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/database/repository"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/activity"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/export"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/generator"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/preview"
	"github.com/onegreenvn/bizdoc-services-backend/internal/utils"
)

// Titles are stored as varchar(255)
const maxTitleLength = 255

type Store interface {
	Create(project *models.Project) error
	GetByIDForUser(id, userID string) (*models.Project, error)
	Update(project *models.Project) error
	Delete(id, userID string) (bool, error)
	List(filter repository.ProjectFilter, page, pageSize int) ([]models.Project, int64, error)
}

// Generator writes document content
type Generator interface {
	Generate(ctx context.Context, input models.DocumentInput) (*generator.Result, error)
}

// Quota refuses generation once the monthly allowance is used and charges
// each generation against it
type Quota interface {
	CheckQuota(ctx context.Context, userID string) error
	RecordGeneration(ctx context.Context, g *models.Generation) error
}

type Service struct {
	store     Store
	generator Generator
	quota     Quota
	exporter  *export.Service
	renderer  *preview.Renderer
	recorder  activity.Recorder
}

func NewService(store Store, gen Generator, quota Quota, exporter *export.Service, renderer *preview.Renderer, recorder activity.Recorder) *Service {
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &Service{
		store:     store,
		generator: gen,
		quota:     quota,
		exporter:  exporter,
		renderer:  renderer,
		recorder:  recorder,
	}
}

// Generate writes a document for userID and stores it. With a project_id
// the owned project is overwritten; otherwise a new project is created.
func (s *Service) Generate(ctx context.Context, userID string, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	kind, ok := models.ParseDocumentKind(string(req.Type))
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unsupported document type %q", req.Type))
	}
	input, err := models.DecodeDocumentInput(kind, req.Input)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var project *models.Project
	if req.ProjectID != "" {
		project, err = s.getOwned(req.ProjectID, userID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.quota.CheckQuota(ctx, userID); err != nil {
		return nil, err
	}

	result, err := s.generator.Generate(ctx, input)
	if err != nil {
		return nil, err
	}

	// Every generation is charged, including regenerations of an existing
	// project, before anything is saved
	isNew := project == nil
	if isNew {
		project = &models.Project{ID: uuid.NewString(), UserID: userID}
	}
	if err := s.quota.RecordGeneration(ctx, &models.Generation{
		UserID:     userID,
		ProjectID:  project.ID,
		Type:       kind,
		TokensUsed: result.TotalTokens(),
	}); err != nil {
		return nil, err
	}

	info := input.Business()
	project.Type = kind
	project.Sector = info.Sector
	project.BusinessName = info.BusinessName
	if title := strings.TrimSpace(req.Title); title != "" {
		project.Title = utils.Truncate(title, maxTitleLength)
	}
	project.Content = result.Content
	project.Input = inputJSON(req.Input)
	project.Status = models.ProjectStatusCompleted
	project.TokensUsed = result.TotalTokens()

	if isNew {
		err = s.store.Create(project)
	} else {
		err = s.store.Update(project)
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to save project: %w", err))
	}

	s.recorder.Record(ctx, models.ActivityLog{
		UserID:     userID,
		Action:     models.ActionDocumentGenerated,
		EntityType: "project",
		EntityID:   project.ID,
		Message:    fmt.Sprintf("Generated %s for %s", kind.Label(), info.BusinessName),
		Metadata:   models.JSON{"type": string(kind), "tokens": project.TokensUsed},
	})

	return &models.GenerateResponse{Project: *project, TokensUsed: project.TokensUsed}, nil
}

func inputJSON(raw json.RawMessage) models.JSON {
	var m models.JSON
	if err := json.Unmarshal(raw, &m); err != nil {
		logrus.Debugf("Project input is not an object: %v", err)
		return nil
	}
	return m
}

func (s *Service) getOwned(id, userID string) (*models.Project, error) {
	p, err := s.store.GetByIDForUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("project not found")
		}
		return nil, apperror.Internal(err)
	}
	return p, nil
}

// Get returns a project owned by userID
func (s *Service) Get(userID, id string) (*models.Project, error) {
	return s.getOwned(id, userID)
}

// List returns the user's projects without their content
func (s *Service) List(filter repository.ProjectFilter, page, pageSize int) ([]models.ProjectListItem, int64, error) {
	projects, total, err := s.store.List(filter, page, pageSize)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	items := make([]models.ProjectListItem, 0, len(projects))
	for i := range projects {
		items = append(items, projects[i].ToListItem())
	}
	return items, total, nil
}

func (s *Service) Update(userID, id string, req *models.UpdateProjectRequest) (*models.Project, error) {
	p, err := s.getOwned(id, userID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		p.Title = utils.Truncate(strings.TrimSpace(*req.Title), maxTitleLength)
	}
	if req.Content != nil {
		p.Content = *req.Content
	}
	if req.Status != nil {
		switch *req.Status {
		case models.ProjectStatusDraft, models.ProjectStatusCompleted:
			p.Status = *req.Status
		default:
			return nil, apperror.Validation(fmt.Sprintf("invalid status %q", *req.Status))
		}
	}
	if err := s.store.Update(p); err != nil {
		return nil, apperror.Internal(err)
	}
	return p, nil
}

func (s *Service) Delete(userID, id string) error {
	deleted, err := s.store.Delete(id, userID)
	if err != nil {
		return apperror.Internal(err)
	}
	if !deleted {
		return apperror.NotFound("project not found")
	}
	return nil
}

// Preview lays the project out as pages or slides
func (s *Service) Preview(userID, id string) (*preview.Preview, error) {
	p, err := s.getOwned(id, userID)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderProject(p), nil
}

// Export assembles a stored project in format (empty picks the default)
func (s *Service) Export(ctx context.Context, userID, id, format string) (*export.Artifact, error) {
	p, err := s.getOwned(id, userID)
	if err != nil {
		return nil, err
	}
	artifact, err := s.exporter.Export(ctx, &models.ExportRequest{
		Content:      p.Content,
		BusinessName: p.BusinessName,
		DocumentType: string(p.Type),
		Title:        p.Title,
		Format:       format,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, models.ActivityLog{
		UserID:     userID,
		Action:     models.ActionDocumentExported,
		EntityType: "project",
		EntityID:   p.ID,
		Message:    fmt.Sprintf("Exported %s as %s", p.DisplayTitle(), artifact.Format),
		Metadata:   models.JSON{"format": string(artifact.Format)},
	})
	return artifact, nil
}

// Archive exports the project and uploads the file to the archive bucket
func (s *Service) Archive(ctx context.Context, userID, id, format string) (*models.ArchiveResponse, error) {
	if !s.exporter.ArchiveEnabled() {
		return nil, apperror.New(apperror.CodeStorage, "document archive is not configured")
	}
	artifact, err := s.Export(ctx, userID, id, format)
	if err != nil {
		return nil, err
	}
	resp, err := s.exporter.Archive(ctx, userID, artifact)
	if err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, models.ActivityLog{
		UserID:     userID,
		Action:     models.ActionDocumentArchived,
		EntityType: "project",
		EntityID:   id,
		Message:    "Archived " + artifact.Filename,
		Metadata:   models.JSON{"object_key": resp.ObjectKey},
	})
	return resp, nil
}
