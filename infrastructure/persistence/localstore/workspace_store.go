// Package localstore implements the editor persistence ports on top of the
// expiring key-value store. It is the only package that knows storage keys.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"deployboard/application/ports"
	"deployboard/domain/core/entities"
	"deployboard/infrastructure/persistence/expiring"
)

const (
	sectionKeyPrefix = "placed-modules-"
	nodesKey         = "flow-nodes"
	edgesKey         = "flow-edges"
	authKey          = "isAuthenticated"
	credentialsKey   = "savedCredentials"
)

// SectionKey returns the storage key of a section's placed list.
func SectionKey(sectionID string) string {
	return sectionKeyPrefix + sectionID
}

// Store implements ports.WorkspaceStore and ports.SessionStore.
type Store struct {
	items  *expiring.Store
	logger *zap.Logger
}

var (
	_ ports.WorkspaceStore = (*Store)(nil)
	_ ports.SessionStore   = (*Store)(nil)
)

func New(items *expiring.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{items: items, logger: logger}
}

func (s *Store) PlacedModules(ctx context.Context, sectionID string) []entities.PlacedModule {
	mods, _ := expiring.Get[[]entities.PlacedModule](ctx, s.items, SectionKey(sectionID))
	return mods
}

func (s *Store) SavePlacedModules(ctx context.Context, sectionID string, modules []entities.PlacedModule) error {
	return s.saveOrRemove(ctx, SectionKey(sectionID), len(modules), modules)
}

func (s *Store) Nodes(ctx context.Context) []entities.GraphNode {
	nodes, _ := expiring.Get[[]entities.GraphNode](ctx, s.items, nodesKey)
	return nodes
}

func (s *Store) SaveNodes(ctx context.Context, nodes []entities.GraphNode) error {
	return s.saveOrRemove(ctx, nodesKey, len(nodes), nodes)
}

func (s *Store) Edges(ctx context.Context) []entities.GraphEdge {
	edges, _ := expiring.Get[[]entities.GraphEdge](ctx, s.items, edgesKey)
	return edges
}

func (s *Store) SaveEdges(ctx context.Context, edges []entities.GraphEdge) error {
	return s.saveOrRemove(ctx, edgesKey, len(edges), edges)
}

// Reset removes section lists and graph snapshots. Session entries stay.
func (s *Store) Reset(ctx context.Context) error {
	keys, err := s.items.Keys(ctx, sectionKeyPrefix)
	if err != nil {
		return fmt.Errorf("list section keys: %w", err)
	}
	keys = append(keys, nodesKey, edgesKey)
	for _, k := range keys {
		if err := s.items.Remove(ctx, k); err != nil {
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	s.logger.Info("workspace storage reset", zap.Int("keys", len(keys)))
	return nil
}

func (s *Store) saveOrRemove(ctx context.Context, key string, n int, value any) error {
	if n == 0 {
		return s.items.Remove(ctx, key)
	}
	return s.items.Set(ctx, key, value, 0)
}

// Session

func (s *Store) IsAuthenticated(ctx context.Context) bool {
	v, ok, err := s.items.GetRaw(ctx, authKey)
	if err != nil {
		s.logger.Warn("read auth flag", zap.Error(err))
		return false
	}
	return ok && v == "true"
}

func (s *Store) SetAuthenticated(ctx context.Context, authenticated bool) error {
	if !authenticated {
		return s.items.Remove(ctx, authKey)
	}
	return s.items.SetRaw(ctx, authKey, "true")
}

func (s *Store) SavedCredentials(ctx context.Context) (ports.Credentials, bool) {
	v, ok, err := s.items.GetRaw(ctx, credentialsKey)
	if err != nil || !ok {
		return ports.Credentials{}, false
	}
	var c ports.Credentials
	if err := json.Unmarshal([]byte(v), &c); err != nil {
		s.logger.Warn("saved credentials unreadable", zap.Error(err))
		return ports.Credentials{}, false
	}
	return c, true
}

func (s *Store) SaveCredentials(ctx context.Context, creds ports.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.items.SetRaw(ctx, credentialsKey, string(data))
}

func (s *Store) ClearCredentials(ctx context.Context) error {
	return s.items.Remove(ctx, credentialsKey)
}
