// Package service orchestrates the import pipeline: one session per
// uploaded file, from parsing through column mapping, incompatibility
// resolution and the final batch submit.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/construlink/obra-tracker/internal/domain/catalog"
	"github.com/construlink/obra-tracker/internal/domain/import/mapper"
	"github.com/construlink/obra-tracker/internal/domain/import/normalizer"
	"github.com/construlink/obra-tracker/internal/domain/import/parser"
	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/internal/domain/import/resolver"
	"github.com/construlink/obra-tracker/pkg/normtext"
)

// ErrSessionNotFound covers both unknown and expired session IDs.
var ErrSessionNotFound = errors.New("import session not found or expired")

// CatalogStore joins loading with entry creation. *catalog.Repository
// satisfies it.
type CatalogStore interface {
	LoadHierarchy(ctx context.Context, orgID uuid.UUID) (catalog.Hierarchy, error)
	LoadCurrencies(ctx context.Context, orgID uuid.UUID) ([]catalog.Option, error)
	LoadWallets(ctx context.Context, orgID uuid.UUID) ([]catalog.Option, error)
	CreateCategory(ctx context.Context, orgID uuid.UUID, name string, typeID *uuid.UUID) (catalog.Option, error)
	CreateSubcategory(ctx context.Context, orgID uuid.UUID, name string, parentID uuid.UUID) (catalog.Option, error)
}

// OverrideStore persists manual resolutions across sessions.
// *normalizer.OverrideStore satisfies it.
type OverrideStore interface {
	LoadForOrganization(ctx context.Context, orgID uuid.UUID) (*normalizer.Overrides, error)
	Save(ctx context.Context, orgID uuid.UUID, f record.Field, rawText string, r normalizer.Resolution) error
}

// MovementWriter lands the batch. *movements.Repository satisfies it.
type MovementWriter interface {
	InsertBatch(ctx context.Context, orgID uuid.UUID, projectID *uuid.UUID, batchID uuid.UUID, records []record.ImportRecord) error
}

// Invalidator expires downstream read caches after a submit.
type Invalidator interface {
	Invalidate()
}

// Reindexer is notified when a session changes an organization's catalog,
// so cached search indexes can be dropped. *catalog.Service satisfies it.
type Reindexer interface {
	InvalidateIndex(orgID uuid.UUID)
}

// ImportService runs import sessions end to end.
type ImportService struct {
	sessions    *SessionStore
	catalogs    CatalogStore
	overrides   OverrideStore
	writer      MovementWriter
	invalidator Invalidator
	reindexer   Reindexer
	cfg         normalizer.Config
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewImportService wires the import pipeline.
func NewImportService(sessions *SessionStore, catalogs CatalogStore, overrides OverrideStore, writer MovementWriter, logger *slog.Logger) *ImportService {
	return &ImportService{
		sessions:  sessions,
		catalogs:  catalogs,
		overrides: overrides,
		writer:    writer,
		cfg:       normalizer.DefaultConfig(),
		logger:    logger,
		tracer:    otel.Tracer("import"),
	}
}

// WithNormalizerConfig overrides the matching thresholds.
func (s *ImportService) WithNormalizerConfig(cfg normalizer.Config) *ImportService {
	s.cfg = cfg
	return s
}

// WithInvalidator adds read-cache invalidation after submits.
func (s *ImportService) WithInvalidator(inv Invalidator) *ImportService {
	s.invalidator = inv
	return s
}

// WithReindexer adds search reindexing after catalog changes.
func (s *ImportService) WithReindexer(r Reindexer) *ImportService {
	s.reindexer = r
	return s
}

// CreateSession parses the upload, loads the organization's catalog and
// stored overrides, and auto-assigns the column mapping from the headers.
func (s *ImportService) CreateSession(ctx context.Context, orgID uuid.UUID, projectID *uuid.UUID, fileName string, data []byte) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "import.CreateSession",
		trace.WithAttributes(attribute.String("file.name", fileName), attribute.Int("file.bytes", len(data))))
	defer span.End()

	file, err := parser.Parse(data)
	if err != nil {
		sessionsFailed.WithLabelValues("parse").Inc()
		return nil, fmt.Errorf("parse %s: %w", fileName, err)
	}

	hierarchy, err := s.catalogs.LoadHierarchy(ctx, orgID)
	if err != nil {
		sessionsFailed.WithLabelValues("catalog").Inc()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	currencies, err := s.catalogs.LoadCurrencies(ctx, orgID)
	if err != nil {
		sessionsFailed.WithLabelValues("catalog").Inc()
		return nil, fmt.Errorf("load currencies: %w", err)
	}
	wallets, err := s.catalogs.LoadWallets(ctx, orgID)
	if err != nil {
		sessionsFailed.WithLabelValues("catalog").Inc()
		return nil, fmt.Errorf("load wallets: %w", err)
	}

	overrides, err := s.overrides.LoadForOrganization(ctx, orgID)
	if err != nil {
		sessionsFailed.WithLabelValues("overrides").Inc()
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	session := &Session{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ProjectID:      projectID,
		FileName:       fileName,
		File:           file,
		Mapping:        mapper.ColumnMapping{},
		Catalog:        catalog.Build(hierarchy, currencies, wallets),
		Overrides:      overrides,
		CreatedAt:      time.Now(),
	}
	mapper.AutoAssign(file.Headers, session.Mapping)
	session.rebuildNormalizer(s.cfg)
	s.sessions.Put(session)

	sessionsCreated.Inc()
	s.logger.Info("import session created",
		"sessionID", session.ID, "file", fileName,
		"rows", len(file.Rows), "mappedColumns", len(session.Mapping))
	return session, nil
}

// Get returns a live session.
func (s *ImportService) Get(id uuid.UUID) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SetMapping replaces the session's column mapping after validating it.
func (s *ImportService) SetMapping(id uuid.UUID, m mapper.ColumnMapping) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	for _, f := range m {
		if !f.Valid() {
			return fmt.Errorf("unknown field %q", f)
		}
	}
	if err := mapper.Validate(m); err != nil {
		return err
	}
	session.Mapping = m
	return nil
}

// Incompatibilities lists the distinct identifier values the catalog cannot
// absorb yet, grouped per field.
func (s *ImportService) Incompatibilities(ctx context.Context, id uuid.UUID) ([]resolver.Incompatibility, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := mapper.Validate(session.Mapping); err != nil {
		return nil, err
	}
	_, span := s.tracer.Start(ctx, "import.Incompatibilities")
	defer span.End()

	return resolver.Collect(session.File, session.Mapping, session.Normalizer()), nil
}

// Resolve applies operator decisions. Catalog-changing decisions rebuild
// the session's normalizer and the shared search index.
func (s *ImportService) Resolve(ctx context.Context, id uuid.UUID, reqs []resolver.Request) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}

	res := resolver.New(s.catalogs, s.overrides, session.Catalog, session.Overrides)
	catalogChanged := false
	for _, req := range reqs {
		change, err := res.Apply(ctx, session.OrganizationID, req)
		if err != nil {
			return err
		}
		resolutionsApplied.WithLabelValues(string(req.Action)).Inc()
		if change.CatalogChanged {
			catalogChanged = true
			if change.Created != nil {
				s.logger.Info("catalog entry created during import",
					"sessionID", session.ID, "field", req.Field, "name", change.Created.Name)
			}
		}
	}

	session.rebuildNormalizer(s.cfg)
	if catalogChanged && s.reindexer != nil {
		s.reindexer.InvalidateIndex(session.OrganizationID)
	}
	return nil
}

// SubmitResult reports a landed batch.
type SubmitResult struct {
	BatchID          uuid.UUID `json:"batch_id"`
	RowsTotal        int       `json:"rows_total"`
	RowsInserted     int       `json:"rows_inserted"`
	RowsDropped      int       `json:"rows_dropped"`
	UnresolvedValues int       `json:"unresolved_values"`
	UnresolvedRows   int       `json:"unresolved_rows"`
}

// Submit materializes one record per row and writes the whole batch in a
// single transaction. A non-empty rows argument restricts the submit to
// that subset of row indexes. Rows with no populated field are dropped.
// Identifier values the normalizer could not place import as null; the
// result counts them so the operator can revisit. The write is not retried.
func (s *ImportService) Submit(ctx context.Context, id uuid.UUID, rows []int) (*SubmitResult, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := mapper.Validate(session.Mapping); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row < 0 || row >= len(session.File.Rows) {
			return nil, fmt.Errorf("row index %d out of range", row)
		}
	}

	ctx, span := s.tracer.Start(ctx, "import.Submit",
		trace.WithAttributes(attribute.String("session.id", session.ID.String())))
	defer span.End()

	built := s.buildRecords(session, rows)

	batchID := uuid.New()
	if err := s.writer.InsertBatch(ctx, session.OrganizationID, session.ProjectID, batchID, built.records); err != nil {
		batchesFailed.Inc()
		return nil, err
	}

	s.sessions.Delete(session.ID)
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}

	batchesSubmitted.Inc()
	rowsInserted.Add(float64(len(built.records)))
	valuesUnresolved.Add(float64(built.unresolvedValues))
	s.logger.Info("batch submitted",
		"sessionID", session.ID, "batchID", batchID,
		"inserted", len(built.records), "dropped", built.dropped,
		"unresolvedValues", built.unresolvedValues)
	return &SubmitResult{
		BatchID:          batchID,
		RowsTotal:        built.total,
		RowsInserted:     len(built.records),
		RowsDropped:      built.dropped,
		UnresolvedValues: built.unresolvedValues,
		UnresolvedRows:   built.unresolvedRows,
	}, nil
}

type builtBatch struct {
	records          []record.ImportRecord
	total            int
	dropped          int
	unresolvedValues int
	unresolvedRows   int
}

// buildRecords converts the selected file rows (all of them when rows is
// empty). A missed identifier resolution leaves that slot nil; the row
// still imports. Rows with no populated field at all are dropped.
func (s *ImportService) buildRecords(session *Session, rows []int) builtBatch {
	n := session.Normalizer()
	unresolvedValues := make(map[string]bool)

	if len(rows) == 0 {
		rows = make([]int, len(session.File.Rows))
		for i := range rows {
			rows[i] = i
		}
	}

	out := builtBatch{total: len(rows)}
	for _, row := range rows {
		var rec record.ImportRecord
		rowUnresolved := false

		for col, f := range session.Mapping {
			raw := session.File.Cell(row, col)
			switch f.Kind() {
			case record.KindDate:
				if d, err := record.ParseDate(raw); err == nil {
					rec.Date = &d
				}
			case record.KindAmount:
				if a, err := record.ParseAmount(raw); err == nil {
					if f == record.FieldAmount {
						rec.Amount = &a
					} else {
						rec.ExchangeRate = &a
					}
				}
			case record.KindText:
				if text, ok := record.ParseText(raw); ok {
					rec.Description = &text
				}
			case record.KindIdentifier:
				res := n.Resolve(f, raw)
				switch res.Outcome {
				case normalizer.OutcomeMatched:
					_ = rec.SetIdentifier(f, res.ID)
				case normalizer.OutcomeUnresolved:
					unresolvedValues[string(f)+"\x00"+normtext.Canonicalize(raw)] = true
					rowUnresolved = true
				}
			}
		}

		if rowUnresolved {
			out.unresolvedRows++
		}
		if rec.PopulatedFields() == 0 {
			out.dropped++
			continue
		}
		out.records = append(out.records, rec)
	}

	out.unresolvedValues = len(unresolvedValues)
	return out
}
