// Package graph keeps the canvas nodes and edges, persists them, and rebuilds
// them from storage when the workspace mounts.
package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deployboard/application/ports"
	"deployboard/domain/catalog"
	domainconfig "deployboard/domain/config"
	"deployboard/domain/core/entities"
	"deployboard/domain/core/valueobjects"
	"deployboard/domain/events"
)

// Restore sources.
const (
	SourceSnapshot = "snapshot"
	SourceReplay   = "replay"
	SourceEmpty    = "empty"
)

// Dependencies wires a Reconciler.
type Dependencies struct {
	Store     ports.WorkspaceStore
	Catalog   *catalog.Catalog
	Config    *domainconfig.DomainConfig
	Notifier  ports.Notifier
	Publisher ports.EventPublisher
	Metrics   ports.Metrics
	Logger    *zap.Logger
	Clock     func() time.Time
	NewEdgeID func() string
}

// RestoreResult describes how the graph was rebuilt.
type RestoreResult struct {
	Source string `json:"source"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
}

// EdgeRequest is a connection drawn by the user.
type EdgeRequest struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Reconciler owns the node and edge lists.
type Reconciler struct {
	mu        sync.RWMutex
	nodes     []entities.GraphNode
	edges     []entities.GraphEdge
	restoring bool

	store     ports.WorkspaceStore
	catalog   *catalog.Catalog
	cfg       *domainconfig.DomainConfig
	notifier  ports.Notifier
	publisher ports.EventPublisher
	metrics   ports.Metrics
	logger    *zap.Logger
	now       func() time.Time
	newEdgeID func() string
}

func NewReconciler(deps Dependencies) *Reconciler {
	r := &Reconciler{
		store:     deps.Store,
		catalog:   deps.Catalog,
		cfg:       deps.Config,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       deps.Clock,
		newEdgeID: deps.NewEdgeID,
	}
	if r.cfg == nil {
		r.cfg = domainconfig.DefaultDomainConfig()
	}
	if r.metrics == nil {
		r.metrics = ports.NopMetrics{}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newEdgeID == nil {
		r.newEdgeID = func() string { return "edge-" + uuid.NewString() }
	}
	return r
}

// SetRestoring toggles notice suppression while the workspace mounts.
func (r *Reconciler) SetRestoring(restoring bool) {
	r.mu.Lock()
	r.restoring = restoring
	r.mu.Unlock()
}

// Restore rebuilds the graph in one pass. A non-empty node snapshot is
// adopted verbatim; otherwise the placed lists of sectionIDs are replayed
// onto a grid. A non-empty edge snapshot is adopted independently. The
// final state is persisted once.
func (r *Reconciler) Restore(ctx context.Context, sectionIDs []string) (RestoreResult, error) {
	r.mu.Lock()

	result := RestoreResult{Source: SourceEmpty}
	if saved := r.store.Nodes(ctx); len(saved) > 0 {
		r.nodes = saved
		result.Source = SourceSnapshot
	} else if replayed := r.replay(ctx, sectionIDs); len(replayed) > 0 {
		r.nodes = replayed
		result.Source = SourceReplay
	}

	if saved := r.store.Edges(ctx); len(saved) > 0 {
		r.edges = saved
	}

	result.Nodes = len(r.nodes)
	result.Edges = len(r.edges)
	err := r.persistLocked(ctx)
	r.mu.Unlock()

	r.logger.Info("graph restored",
		zap.String("source", result.Source),
		zap.Int("nodes", result.Nodes),
		zap.Int("edges", result.Edges))
	r.metrics.GraphRestored(result.Source, result.Nodes)
	r.publish(ctx, events.NewGraphRestored(result.Source, result.Nodes, result.Edges, r.now()))
	return result, err
}

func (r *Reconciler) replay(ctx context.Context, sectionIDs []string) []entities.GraphNode {
	var out []entities.GraphNode
	for _, sectionID := range sectionIDs {
		for i, m := range r.store.PlacedModules(ctx, sectionID) {
			x, y := r.cfg.GridPosition(i)
			out = append(out, entities.NewGraphNode(
				valueobjects.NewReplayNodeID(m.ID, sectionID, i),
				r.cfg.NodeType,
				valueobjects.Position{X: x, Y: y},
				m,
				sectionID,
			))
		}
	}
	return out
}

// AddNode appends a node for a module dropped on a section. A module missing
// from the catalog is ignored; ok reports whether a node was added. While
// restoring, no notice is emitted and nothing is written.
func (r *Reconciler) AddNode(ctx context.Context, moduleID, sectionID string, pos valueobjects.Position) (entities.GraphNode, bool, error) {
	def, found := r.catalog.Lookup(moduleID)
	if !found {
		r.logger.Warn("add node: module not in catalog",
			zap.String("module_id", moduleID),
			zap.String("section_id", sectionID))
		r.metrics.SilentFailure("catalog_miss")
		return entities.GraphNode{}, false, nil
	}

	r.mu.Lock()
	id := r.uniqueLiveIDLocked(moduleID, sectionID)
	node := entities.NewGraphNode(id, r.cfg.NodeType, pos, def, sectionID)
	r.nodes = append(r.nodes, node)
	restoring := r.restoring
	var err error
	if !restoring {
		// Restore persists the final state once.
		err = r.persistLocked(ctx)
	}
	r.mu.Unlock()

	if !restoring && r.notifier != nil {
		r.notifier.Notify(ctx, ports.Notice{
			Level:   ports.NoticeSuccess,
			Message: fmt.Sprintf("成功添加 %s 模块", def.Name),
			Source:  "graph",
			Time:    r.now(),
		})
	}
	r.publish(ctx, events.NewNodeAdded(node, r.now()))
	return node, true, err
}

func (r *Reconciler) uniqueLiveIDLocked(moduleID, sectionID string) valueobjects.NodeID {
	base := valueobjects.NewLiveNodeID(moduleID, sectionID, r.now().UnixMilli())
	id := base
	for n := 1; r.hasNodeLocked(id.String()); n++ {
		id = base.WithSuffix(n)
	}
	return id
}

func (r *Reconciler) hasNodeLocked(id string) bool {
	for _, n := range r.nodes {
		if n.ID.String() == id {
			return true
		}
	}
	return false
}

// Connect appends an edge. Endpoints are not checked and parallel edges are
// allowed.
func (r *Reconciler) Connect(ctx context.Context, req EdgeRequest) (entities.GraphEdge, error) {
	edge := entities.GraphEdge{
		ID:           r.newEdgeID(),
		Source:       req.Source,
		Target:       req.Target,
		SourceHandle: req.SourceHandle,
		TargetHandle: req.TargetHandle,
	}

	r.mu.Lock()
	r.edges = append(r.edges, edge)
	err := r.persistLocked(ctx)
	r.mu.Unlock()

	r.publish(ctx, events.NewNodesConnected(edge, r.now()))
	return edge, err
}

// RemoveModule drops every node of moduleID in sectionID along with the
// edges touching them. It returns the number of nodes removed.
func (r *Reconciler) RemoveModule(ctx context.Context, sectionID, moduleID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make(map[string]struct{})
	kept := r.nodes[:0:0]
	for _, n := range r.nodes {
		if n.Data.SectionID == sectionID && n.Data.ID == moduleID {
			removed[n.ID.String()] = struct{}{}
			continue
		}
		kept = append(kept, n)
	}
	if len(removed) == 0 {
		return 0, nil
	}
	r.nodes = kept

	edges := r.edges[:0:0]
	for _, e := range r.edges {
		_, src := removed[e.Source]
		_, dst := removed[e.Target]
		if src || dst {
			continue
		}
		edges = append(edges, e)
	}
	r.edges = edges

	return len(removed), r.persistLocked(ctx)
}

// Node returns the node with the given id.
func (r *Reconciler) Node(id string) (entities.GraphNode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.nodes {
		if n.ID.String() == id {
			return n, true
		}
	}
	return entities.GraphNode{}, false
}

// Nodes returns a copy of the node list.
func (r *Reconciler) Nodes() []entities.GraphNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.GraphNode(nil), r.nodes...)
}

// Edges returns a copy of the edge list.
func (r *Reconciler) Edges() []entities.GraphEdge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.GraphEdge(nil), r.edges...)
}

// Reset empties the graph and its persisted snapshots.
func (r *Reconciler) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = nil
	r.edges = nil
	return r.persistLocked(ctx)
}

func (r *Reconciler) persistLocked(ctx context.Context) error {
	if err := r.store.SaveNodes(ctx, r.nodes); err != nil {
		return fmt.Errorf("persist nodes: %w", err)
	}
	if err := r.store.SaveEdges(ctx, r.edges); err != nil {
		return fmt.Errorf("persist edges: %w", err)
	}
	return nil
}

func (r *Reconciler) publish(ctx context.Context, e events.DomainEvent) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.logger.Warn("publish graph event", zap.String("event_type", e.GetEventType()), zap.Error(err))
	}
}
