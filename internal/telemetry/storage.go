package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/tracker/internal/storage"
	"github.com/steveyegge/tracker/internal/types"
)

const storageScopeName = "github.com/steveyegge/tracker/storage"

// InstrumentedStorage wraps storage.Storage with OTel tracing and metrics.
// Every method gets a span and is counted in trackd.storage.* metrics.
// Use WrapStorage to create one; it returns the original store unchanged
// when telemetry is disabled.
type InstrumentedStorage struct {
	inner  storage.Storage
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapStorage returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is with zero overhead.
func WrapStorage(s storage.Storage) storage.Storage {
	if !Enabled() {
		return s
	}
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("trackd.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("trackd.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("trackd.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	return &InstrumentedStorage{
		inner:  s,
		tracer: Tracer(storageScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and records a metric for the named storage operation.
func (s *InstrumentedStorage) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (s *InstrumentedStorage) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func actorAttr(actor int64) attribute.KeyValue {
	return attribute.Int64("trackd.actor", actor)
}

func itemAttr(id int64) attribute.KeyValue {
	return attribute.Int64("trackd.item.id", id)
}

// ── Projects ────────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) CreateProject(ctx context.Context, project *types.Project) error {
	attrs := []attribute.KeyValue{attribute.String("trackd.project.key", project.Key)}
	ctx, span, t := s.op(ctx, "CreateProject", attrs...)
	err := s.inner.CreateProject(ctx, project)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	attrs := []attribute.KeyValue{attribute.Int64("trackd.project.id", id)}
	ctx, span, t := s.op(ctx, "GetProject", attrs...)
	v, err := s.inner.GetProject(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) GetProjectByKey(ctx context.Context, key string) (*types.Project, error) {
	attrs := []attribute.KeyValue{attribute.String("trackd.project.key", key)}
	ctx, span, t := s.op(ctx, "GetProjectByKey", attrs...)
	v, err := s.inner.GetProjectByKey(ctx, key)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) ListProjects(ctx context.Context) ([]*types.Project, error) {
	ctx, span, t := s.op(ctx, "ListProjects")
	v, err := s.inner.ListProjects(ctx)
	if err == nil {
		span.SetAttributes(attribute.Int("trackd.result.count", len(v)))
	}
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) UpdateProject(ctx context.Context, id int64, updates map[string]interface{}) error {
	attrs := []attribute.KeyValue{
		attribute.Int64("trackd.project.id", id),
		attribute.Int("trackd.update.count", len(updates)),
	}
	ctx, span, t := s.op(ctx, "UpdateProject", attrs...)
	err := s.inner.UpdateProject(ctx, id, updates)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) DeleteProject(ctx context.Context, id int64) error {
	attrs := []attribute.KeyValue{attribute.Int64("trackd.project.id", id)}
	ctx, span, t := s.op(ctx, "DeleteProject", attrs...)
	err := s.inner.DeleteProject(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return err
}

// ── Work items ──────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) CreateWorkItem(ctx context.Context, item *types.WorkItem, actor int64) error {
	attrs := []attribute.KeyValue{
		actorAttr(actor),
		attribute.String("trackd.item.type", string(item.Type)),
	}
	ctx, span, t := s.op(ctx, "CreateWorkItem", attrs...)
	err := s.inner.CreateWorkItem(ctx, item, actor)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) GetWorkItem(ctx context.Context, id int64, expand types.ExpandOptions) (*types.WorkItem, error) {
	attrs := []attribute.KeyValue{itemAttr(id)}
	ctx, span, t := s.op(ctx, "GetWorkItem", attrs...)
	v, err := s.inner.GetWorkItem(ctx, id, expand)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) GetWorkItemByExternalID(ctx context.Context, externalID string) (*types.WorkItem, error) {
	attrs := []attribute.KeyValue{attribute.String("trackd.item.external_id", externalID)}
	ctx, span, t := s.op(ctx, "GetWorkItemByExternalID", attrs...)
	v, err := s.inner.GetWorkItemByExternalID(ctx, externalID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) ListWorkItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error) {
	ctx, span, t := s.op(ctx, "ListWorkItems")
	v, err := s.inner.ListWorkItems(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("trackd.result.count", len(v)))
	}
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) UpdateWorkItem(ctx context.Context, id int64, updates map[string]interface{}, actor int64) error {
	attrs := []attribute.KeyValue{
		itemAttr(id),
		actorAttr(actor),
		attribute.Int("trackd.update.count", len(updates)),
	}
	ctx, span, t := s.op(ctx, "UpdateWorkItem", attrs...)
	err := s.inner.UpdateWorkItem(ctx, id, updates, actor)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) MoveWorkItem(ctx context.Context, id int64, newParentID *int64, actor int64) error {
	attrs := []attribute.KeyValue{itemAttr(id), actorAttr(actor)}
	if newParentID != nil {
		attrs = append(attrs, attribute.Int64("trackd.item.new_parent", *newParentID))
	}
	ctx, span, t := s.op(ctx, "MoveWorkItem", attrs...)
	err := s.inner.MoveWorkItem(ctx, id, newParentID, actor)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) DeleteWorkItem(ctx context.Context, id int64) error {
	attrs := []attribute.KeyValue{itemAttr(id)}
	ctx, span, t := s.op(ctx, "DeleteWorkItem", attrs...)
	err := s.inner.DeleteWorkItem(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) GetChildren(ctx context.Context, id int64) ([]*types.WorkItem, error) {
	attrs := []attribute.KeyValue{itemAttr(id)}
	ctx, span, t := s.op(ctx, "GetChildren", attrs...)
	v, err := s.inner.GetChildren(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// ── Audit trail ─────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) GetHistory(ctx context.Context, workItemID int64) ([]*types.HistoryEntry, error) {
	attrs := []attribute.KeyValue{itemAttr(workItemID)}
	ctx, span, t := s.op(ctx, "GetHistory", attrs...)
	v, err := s.inner.GetHistory(ctx, workItemID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// ── Comments & attachments ──────────────────────────────────────────────────

func (s *InstrumentedStorage) AddComment(ctx context.Context, workItemID, userID int64, content string) (*types.Comment, error) {
	attrs := []attribute.KeyValue{itemAttr(workItemID), actorAttr(userID)}
	ctx, span, t := s.op(ctx, "AddComment", attrs...)
	v, err := s.inner.AddComment(ctx, workItemID, userID, content)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) GetComments(ctx context.Context, workItemID int64) ([]*types.Comment, error) {
	attrs := []attribute.KeyValue{itemAttr(workItemID)}
	ctx, span, t := s.op(ctx, "GetComments", attrs...)
	v, err := s.inner.GetComments(ctx, workItemID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) DeleteComment(ctx context.Context, id int64) error {
	attrs := []attribute.KeyValue{attribute.Int64("trackd.comment.id", id)}
	ctx, span, t := s.op(ctx, "DeleteComment", attrs...)
	err := s.inner.DeleteComment(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) AddAttachment(ctx context.Context, workItemID, userID int64, meta types.FileMeta) (*types.Attachment, error) {
	attrs := []attribute.KeyValue{itemAttr(workItemID), actorAttr(userID)}
	ctx, span, t := s.op(ctx, "AddAttachment", attrs...)
	v, err := s.inner.AddAttachment(ctx, workItemID, userID, meta)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) GetAttachments(ctx context.Context, workItemID int64) ([]*types.Attachment, error) {
	attrs := []attribute.KeyValue{itemAttr(workItemID)}
	ctx, span, t := s.op(ctx, "GetAttachments", attrs...)
	v, err := s.inner.GetAttachments(ctx, workItemID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) DeleteAttachment(ctx context.Context, id int64) error {
	attrs := []attribute.KeyValue{attribute.Int64("trackd.attachment.id", id)}
	ctx, span, t := s.op(ctx, "DeleteAttachment", attrs...)
	err := s.inner.DeleteAttachment(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return err
}

// ── Users & teams ───────────────────────────────────────────────────────────

func (s *InstrumentedStorage) CreateUser(ctx context.Context, user *types.User) error {
	ctx, span, t := s.op(ctx, "CreateUser")
	err := s.inner.CreateUser(ctx, user)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStorage) GetUser(ctx context.Context, id int64) (*types.User, error) {
	attrs := []attribute.KeyValue{attribute.Int64("trackd.user.id", id)}
	ctx, span, t := s.op(ctx, "GetUser", attrs...)
	v, err := s.inner.GetUser(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) ListUsers(ctx context.Context) ([]*types.User, error) {
	ctx, span, t := s.op(ctx, "ListUsers")
	v, err := s.inner.ListUsers(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) DeleteUser(ctx context.Context, id int64) error {
	attrs := []attribute.KeyValue{attribute.Int64("trackd.user.id", id)}
	ctx, span, t := s.op(ctx, "DeleteUser", attrs...)
	err := s.inner.DeleteUser(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) CreateTeam(ctx context.Context, team *types.Team) error {
	ctx, span, t := s.op(ctx, "CreateTeam")
	err := s.inner.CreateTeam(ctx, team)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStorage) GetTeam(ctx context.Context, id int64) (*types.Team, error) {
	attrs := []attribute.KeyValue{attribute.Int64("trackd.team.id", id)}
	ctx, span, t := s.op(ctx, "GetTeam", attrs...)
	v, err := s.inner.GetTeam(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) DeleteTeam(ctx context.Context, id int64) error {
	attrs := []attribute.KeyValue{attribute.Int64("trackd.team.id", id)}
	ctx, span, t := s.op(ctx, "DeleteTeam", attrs...)
	err := s.inner.DeleteTeam(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return err
}

// ── Lifecycle ───────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
