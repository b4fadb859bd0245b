// Package workspace is the editor page: it owns the sections, the graph and
// the selection, mounts them from storage in order, and serializes every
// user operation.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"deployboard/application/graph"
	"deployboard/application/placement"
	"deployboard/application/ports"
	"deployboard/application/selection"
	"deployboard/application/transfer"
	"deployboard/domain/catalog"
	domainconfig "deployboard/domain/config"
	"deployboard/domain/core/entities"
	"deployboard/domain/core/valueobjects"
	apperrors "deployboard/pkg/errors"
	"deployboard/pkg/utils"
)

// Dependencies wires a Workspace.
type Dependencies struct {
	Store     ports.WorkspaceStore
	Catalog   *catalog.Catalog
	Config    *domainconfig.DomainConfig
	Publisher ports.EventPublisher
	Metrics   ports.Metrics
	Logger    *zap.Logger
	Clock     func() time.Time
	NewEdgeID func() string
}

// SectionView is a section with its placed modules.
type SectionView struct {
	catalog.Section
	Modules []entities.PlacedModule `json:"modules"`
}

// SidebarCategory is a catalog group with its expanded flag.
type SidebarCategory struct {
	entities.Category
	Expanded bool `json:"expanded"`
}

// Workspace is safe for concurrent use; operations run one at a time.
type Workspace struct {
	mu      sync.Mutex
	mounted bool

	catalog   *catalog.Catalog
	cfg       *domainconfig.DomainConfig
	store     ports.WorkspaceStore
	sections  []*placement.Section
	byID      map[string]*placement.Section
	graph     *graph.Reconciler
	selection *selection.Coordinator
	notices   *NoticeBoard
	expanded  map[string]bool

	metrics ports.Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
}

func New(deps Dependencies) *Workspace {
	if deps.Config == nil {
		deps.Config = domainconfig.DefaultDomainConfig()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	w := &Workspace{
		catalog:  deps.Catalog,
		cfg:      deps.Config,
		store:    deps.Store,
		byID:     make(map[string]*placement.Section),
		notices:  NewNoticeBoard(),
		expanded: make(map[string]bool),
		metrics:  deps.Metrics,
		logger:   deps.Logger.Named("workspace"),
		tracer:   otel.Tracer("deployboard/workspace"),
	}

	w.selection = selection.NewCoordinator(deps.Publisher, w.logger)
	w.graph = graph.NewReconciler(graph.Dependencies{
		Store:     deps.Store,
		Catalog:   deps.Catalog,
		Config:    deps.Config,
		Notifier:  w.notices,
		Publisher: deps.Publisher,
		Metrics:   deps.Metrics,
		Logger:    w.logger.Named("graph"),
		Clock:     deps.Clock,
		NewEdgeID: deps.NewEdgeID,
	})

	for _, sec := range deps.Catalog.Sections() {
		s := placement.NewSection(sec.ID, sec.Title, placement.Dependencies{
			Store:     deps.Store,
			Graph:     w.graph,
			Selection: w.selection,
			Notifier:  w.notices,
			Publisher: deps.Publisher,
			Metrics:   deps.Metrics,
			Config:    deps.Config,
			Logger:    w.logger.Named("section"),
			Clock:     deps.Clock,
		})
		w.sections = append(w.sections, s)
		w.byID[sec.ID] = s
		w.expanded[sec.ID] = true
	}
	return w
}

// Notices exposes the notice board for subscribers.
func (w *Workspace) Notices() *NoticeBoard { return w.notices }

// SelectionCoordinator exposes the selection coordinator for subscribers.
func (w *Workspace) SelectionCoordinator() *selection.Coordinator { return w.selection }

func (w *Workspace) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return w.tracer.Start(ctx, "workspace."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Mount restores every section, then rebuilds the graph. Section restores
// run first and feed the graph with notices suppressed; the graph restore
// then replaces the node list in one batch. Later calls are no-ops.
func (w *Workspace) Mount(ctx context.Context) (res graph.RestoreResult, err error) {
	ctx, span := w.startSpan(ctx, "mount")
	defer func() { endSpan(span, err) }()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mounted {
		return graph.RestoreResult{Source: "mounted", Nodes: len(w.graph.Nodes()), Edges: len(w.graph.Edges())}, nil
	}

	w.graph.SetRestoring(true)
	defer w.graph.SetRestoring(false)

	ids := make([]string, 0, len(w.sections))
	for _, s := range w.sections {
		n, err := s.Restore(ctx)
		if err != nil {
			return graph.RestoreResult{}, err
		}
		if n > 0 {
			w.logger.Info("section restored", zap.String("section_id", s.ID()), zap.Int("modules", n))
		}
		ids = append(ids, s.ID())
	}

	res, err = w.graph.Restore(ctx, ids)
	if err != nil {
		return res, err
	}
	w.mounted = true
	span.SetAttributes(attribute.String("restore.source", res.Source), attribute.Int("restore.nodes", res.Nodes))
	return res, nil
}

// Ready reports an error until Mount has completed.
func (w *Workspace) Ready(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return fmt.Errorf("workspace not mounted")
	}
	return nil
}

// PlaceModule is the single placement path shared by drag completion and
// click-to-place.
func (w *Workspace) PlaceModule(ctx context.Context, payload transfer.Payload, sectionID string, pos valueobjects.Position) (err error) {
	ctx, span := w.startSpan(ctx, "place_module",
		attribute.String("module.id", payload.ID),
		attribute.String("section.id", sectionID))
	defer func() { endSpan(span, err) }()

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.placeLocked(ctx, payload, sectionID, pos)
}

func (w *Workspace) placeLocked(ctx context.Context, payload transfer.Payload, sectionID string, pos valueobjects.Position) error {
	s, ok := w.byID[sectionID]
	if !ok {
		return apperrors.NewNotFoundError("section " + sectionID)
	}
	if _, err := valueobjects.NewPosition(pos.X, pos.Y); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return s.Drop(ctx, payload, pos)
}

// Drop completes a drag onto a section. A payload that does not parse is
// logged and ignored; placed reports whether the module was accepted.
func (w *Workspace) Drop(ctx context.Context, sectionID string, raw []byte, pos valueobjects.Position) (placed bool, err error) {
	payload, decodeErr := transfer.Decode(raw)
	if decodeErr != nil {
		w.logger.Warn("ignoring unparseable drag payload",
			zap.String("section_id", sectionID),
			zap.Error(decodeErr))
		w.metrics.SilentFailure("bad_payload")
		return false, nil
	}
	if err := w.PlaceModule(ctx, payload, sectionID, pos); err != nil {
		return false, err
	}
	return true, nil
}

// DragPayload returns the encoded drag message for a catalog item.
func (w *Workspace) DragPayload(categoryID, moduleID string) ([]byte, error) {
	def, err := w.catalogItem(categoryID, moduleID)
	if err != nil {
		return nil, err
	}
	return transfer.Encode(def, categoryID)
}

// ClickPlace places a catalog item into its own section at the default
// position, exactly as if it had been dragged there.
func (w *Workspace) ClickPlace(ctx context.Context, categoryID, moduleID string) error {
	def, err := w.catalogItem(categoryID, moduleID)
	if err != nil {
		return err
	}
	pos := valueobjects.Position{X: w.cfg.DefaultDropX, Y: w.cfg.DefaultDropY}
	return w.PlaceModule(ctx, transfer.NewPayload(def, categoryID), categoryID, pos)
}

func (w *Workspace) catalogItem(categoryID, moduleID string) (entities.ModuleDefinition, error) {
	cat, ok := w.catalog.Category(categoryID)
	if !ok {
		return entities.ModuleDefinition{}, apperrors.NewNotFoundError("category " + categoryID)
	}
	for _, m := range cat.Items {
		if m.ID == moduleID {
			return m, nil
		}
	}
	return entities.ModuleDefinition{}, apperrors.NewNotFoundError(fmt.Sprintf("module %s in category %s", moduleID, categoryID))
}

// RemoveModule takes a module out of a section together with its graph
// nodes and their edges. An unknown module is a no-op.
func (w *Workspace) RemoveModule(ctx context.Context, sectionID, moduleID string) (err error) {
	ctx, span := w.startSpan(ctx, "remove_module",
		attribute.String("module.id", moduleID),
		attribute.String("section.id", sectionID))
	defer func() { endSpan(span, err) }()

	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.byID[sectionID]
	if !ok {
		return apperrors.NewNotFoundError("section " + sectionID)
	}
	removed, err := s.RemoveModule(ctx, moduleID)
	if err != nil || !removed {
		return err
	}
	n, err := w.graph.RemoveModule(ctx, sectionID, moduleID)
	if err != nil {
		return apperrors.NewStorageError("remove graph nodes", err)
	}
	w.logger.Info("module removed",
		zap.String("section_id", sectionID),
		zap.String("module_id", moduleID),
		zap.Int("nodes_removed", n))
	return nil
}

// SelectModule selects a placed card.
func (w *Workspace) SelectModule(ctx context.Context, sectionID, moduleID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.byID[sectionID]
	if !ok {
		return apperrors.NewNotFoundError("section " + sectionID)
	}
	return s.SelectModule(ctx, moduleID)
}

// SelectNode selects the module behind a graph node.
func (w *Workspace) SelectNode(ctx context.Context, nodeID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	node, ok := w.graph.Node(nodeID)
	if !ok {
		return apperrors.NewNotFoundError("node " + nodeID)
	}
	w.selection.Select(ctx, entities.Selection{
		Module:    node.Data.Module(),
		SectionID: node.Data.SectionID,
		NodeID:    node.ID.String(),
	})
	return nil
}

// ClearSelection closes the detail panel.
func (w *Workspace) ClearSelection(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selection.Clear(ctx)
}

// Selection returns the current selection and its detail view.
func (w *Workspace) Selection() (entities.Selection, selection.Detail, bool) {
	sel, ok := w.selection.Selected()
	if !ok {
		return entities.Selection{}, selection.Detail{}, false
	}
	return sel, selection.Describe(sel.Module), true
}

// Connect draws an edge between two nodes.
func (w *Workspace) Connect(ctx context.Context, req graph.EdgeRequest) (edge entities.GraphEdge, err error) {
	ctx, span := w.startSpan(ctx, "connect")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(req); err != nil {
		return entities.GraphEdge{}, apperrors.NewValidationError(err.Error())
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	edge, err = w.graph.Connect(ctx, req)
	if err != nil {
		return edge, apperrors.NewStorageError("save edges", err)
	}
	return edge, nil
}

// Graph returns the current nodes and edges.
func (w *Workspace) Graph() ([]entities.GraphNode, []entities.GraphEdge) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.graph.Nodes(), w.graph.Edges()
}

// Sections returns every section with its placed modules, in catalog order.
func (w *Workspace) Sections() []SectionView {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]SectionView, 0, len(w.sections))
	for _, s := range w.sections {
		sec, _ := w.catalog.Section(s.ID())
		out = append(out, SectionView{Section: sec, Modules: s.Modules()})
	}
	return out
}

// Section returns one section.
func (w *Workspace) Section(id string) (SectionView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.byID[id]
	if !ok {
		return SectionView{}, apperrors.NewNotFoundError("section " + id)
	}
	sec, _ := w.catalog.Section(id)
	return SectionView{Section: sec, Modules: s.Modules()}, nil
}

// Sidebar returns the catalog with each group's expanded flag.
func (w *Workspace) Sidebar() []SidebarCategory {
	w.mu.Lock()
	defer w.mu.Unlock()
	cats := w.catalog.Categories()
	out := make([]SidebarCategory, len(cats))
	for i, c := range cats {
		out[i] = SidebarCategory{Category: c, Expanded: w.expanded[c.ID]}
	}
	return out
}

// Search filters the sidebar by module name or id.
func (w *Workspace) Search(q string) []entities.Category {
	return w.catalog.Search(q)
}

// SearchPlaceholder is the hint shown in the empty search box.
func (w *Workspace) SearchPlaceholder() string {
	return w.cfg.SearchPlaceholder
}

// ToggleCategory flips a sidebar group and returns its new state.
func (w *Workspace) ToggleCategory(id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.catalog.Category(id); !ok {
		return false, apperrors.NewNotFoundError("category " + id)
	}
	w.expanded[id] = !w.expanded[id]
	return w.expanded[id], nil
}

// DrainNotices returns queued notices.
func (w *Workspace) DrainNotices() []ports.Notice {
	return w.notices.Drain()
}

// Reset empties every section and the graph, clears the selection and
// deletes the persisted editor state.
func (w *Workspace) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sections {
		if err := s.Reset(ctx); err != nil {
			return apperrors.NewStorageError("reset section", err)
		}
	}
	if err := w.graph.Reset(ctx); err != nil {
		return apperrors.NewStorageError("reset graph", err)
	}
	w.selection.Clear(ctx)
	return w.store.Reset(ctx)
}
