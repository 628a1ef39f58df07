// Package schemaservice validates and applies changes to schema records.
package schemaservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"

	"github.com/topwebdesignco/advanced-schema-manager/internal/inject"
	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
	"github.com/topwebdesignco/advanced-schema-manager/internal/store"
)

// Event kinds published after a successful change.
const (
	EventCreated = "schema.created"
	EventUpdated = "schema.updated"
	EventDeleted = "schema.deleted"
)

// Publisher receives change notifications.
type Publisher interface {
	PublishSchemaEvent(kind string, id int64)
}

// Input is the author-supplied part of a record.
type Input struct {
	TargetType string `json:"target_type"`
	Target     string `json:"target"`
	Label      string `json:"label"`
	Document   string `json:"document"`
}

var typeName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func (in Input) selector() models.Selector {
	return models.ParseSelector(in.Target, in.TargetType)
}

// validate checks in. strict additionally requires a well-formed document.
func (in *Input) validate(strict bool) error {
	in.TargetType = strings.TrimSpace(in.TargetType)
	in.Target = strings.TrimSpace(in.Target)
	in.Label = strings.TrimSpace(in.Label)

	labels := make([]any, len(models.Labels))
	for i, l := range models.Labels {
		labels[i] = l
	}
	docRules := []validation.Rule{validation.Required}
	if strict {
		docRules = append(docRules, validation.By(wellFormed))
	}
	return validation.ValidateStruct(in,
		validation.Field(&in.TargetType, validation.Required, validation.Match(typeName).Error("must be a content type name")),
		validation.Field(&in.Target, validation.Required, validation.By(in.allOfTypeSupported)),
		validation.Field(&in.Label, validation.Required, validation.In(labels...).Error("must be a recognized schema label")),
		validation.Field(&in.Document, docRules...),
	)
}

func (in *Input) allOfTypeSupported(any) error {
	sel := in.selector()
	if sel.Kind == models.SelectorAllOfType && sel.Type != models.PageType {
		return errors.New("all items can only be targeted for pages")
	}
	return nil
}

func wellFormed(v any) error {
	if s, _ := v.(string); s != "" && !gjson.Valid(s) {
		return errors.New("must be well-formed JSON")
	}
	return nil
}

// Config tunes validation.
type Config struct {
	// StrictJSON rejects documents that are not well-formed JSON.
	StrictJSON bool
}

// Service coordinates validation, persistence and change events.
type Service struct {
	store  store.SchemaStore
	events Publisher
	cfg    Config
	logger *slog.Logger
}

// New creates a Service. events may be nil.
func New(st store.SchemaStore, events Publisher, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, events: events, cfg: cfg, logger: logger}
}

// List returns all records ordered by sort (see store.DB.List).
func (s *Service) List(ctx context.Context, sort string) ([]models.SchemaRecord, error) {
	recs, err := s.store.List(ctx, sort)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.SchemaRecord{}
	}
	return recs, nil
}

// Get returns record id or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*models.SchemaRecord, error) {
	return s.store.Get(ctx, id)
}

// Create validates in and stores it as a new record.
func (s *Service) Create(ctx context.Context, in Input) (*models.SchemaRecord, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	id, err := s.store.Create(ctx, s.record(in))
	if err != nil {
		return nil, fmt.Errorf("schemaservice: create: %w", err)
	}
	s.logger.Info("schema saved", slog.Int64("id", id), slog.String("label", in.Label), slog.String("target", in.Target))
	s.publish(EventCreated, id)
	return s.store.Get(ctx, id)
}

// Update replaces every editable field of record id.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*models.SchemaRecord, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, id, s.record(in)); err != nil {
		return nil, fmt.Errorf("schemaservice: update %d: %w", id, err)
	}
	s.logger.Info("schema updated", slog.Int64("id", id), slog.String("label", in.Label))
	s.publish(EventUpdated, id)
	return s.store.Get(ctx, id)
}

// Delete removes record id. Deleting an absent record returns apperr.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("schemaservice: delete %d: %w", id, err)
	}
	s.logger.Info("schema deleted", slog.Int64("id", id))
	s.publish(EventDeleted, id)
	return nil
}

// Preview is a record with its document formatted for reading.
type Preview struct {
	Record *models.SchemaRecord `json:"record"`
	Pretty string               `json:"pretty"`
	Valid  bool                 `json:"valid"`
}

// Preview returns record id with an indented document. A malformed document
// is returned as stored with Valid false.
func (s *Service) Preview(ctx context.Context, id int64) (*Preview, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &Preview{Record: rec, Pretty: rec.Document}
	if pretty, ok := inject.Pretty(rec.Document); ok {
		p.Pretty, p.Valid = pretty, true
	}
	return p, nil
}

func (s *Service) check(in *Input) error {
	if err := in.validate(s.cfg.StrictJSON); err != nil {
		return err
	}
	if !gjson.Valid(in.Document) {
		s.logger.Warn("schema document is not well-formed JSON; it will be skipped when rendering",
			slog.String("label", in.Label), slog.String("target", in.Target))
	}
	return nil
}

func (s *Service) record(in Input) models.SchemaRecord {
	return models.SchemaRecord{
		TargetType: in.TargetType,
		Target:     in.selector(),
		Label:      in.Label,
		Document:   in.Document,
	}
}

func (s *Service) publish(kind string, id int64) {
	if s.events != nil {
		s.events.PublishSchemaEvent(kind, id)
	}
}
