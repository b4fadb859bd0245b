// Package placement implements the canvas sections: each holds the modules
// placed in it, validates drops against its group, and persists its list.
package placement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"deployboard/application/ports"
	"deployboard/application/transfer"
	domainconfig "deployboard/domain/config"
	"deployboard/domain/core/entities"
	"deployboard/domain/core/valueobjects"
	"deployboard/domain/events"
	apperrors "deployboard/pkg/errors"
)

// GraphNotifier is told about every accepted module before the section
// records it.
type GraphNotifier interface {
	AddNode(ctx context.Context, moduleID, sectionID string, pos valueobjects.Position) (entities.GraphNode, bool, error)
}

// Selector is the subset of the selection coordinator a section drives.
type Selector interface {
	Select(ctx context.Context, sel entities.Selection)
	Clear(ctx context.Context)
	IsSelected(moduleID string) bool
}

// Dependencies wires a Section.
type Dependencies struct {
	Store     ports.WorkspaceStore
	Graph     GraphNotifier
	Selection Selector
	Notifier  ports.Notifier
	Publisher ports.EventPublisher
	Metrics   ports.Metrics
	Config    *domainconfig.DomainConfig
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Section is a drop target bound to one catalog group.
type Section struct {
	id    string
	title string

	mu      sync.RWMutex
	modules []entities.PlacedModule

	store     ports.WorkspaceStore
	graph     GraphNotifier
	selection Selector
	notifier  ports.Notifier
	publisher ports.EventPublisher
	metrics   ports.Metrics
	cfg       *domainconfig.DomainConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewSection(id, title string, deps Dependencies) *Section {
	s := &Section{
		id:        id,
		title:     title,
		store:     deps.Store,
		graph:     deps.Graph,
		selection: deps.Selection,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		cfg:       deps.Config,
		logger:    deps.Logger,
		now:       deps.Clock,
	}
	if s.metrics == nil {
		s.metrics = ports.NopMetrics{}
	}
	if s.cfg == nil {
		s.cfg = domainconfig.DefaultDomainConfig()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("section_id", id))
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Section) ID() string    { return s.id }
func (s *Section) Title() string { return s.title }

// Modules returns a copy of the placed list.
func (s *Section) Modules() []entities.PlacedModule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.PlacedModule(nil), s.modules...)
}

// Has reports whether moduleID is placed here.
func (s *Section) Has(moduleID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(moduleID) >= 0
}

func (s *Section) indexLocked(moduleID string) int {
	for i, m := range s.modules {
		if m.ID == moduleID {
			return i
		}
	}
	return -1
}

// Restore adopts the persisted list and notifies the graph once per entry at
// the default drop position. It returns the number of modules restored.
// Restore never notifies; graph notices are muted by the workspace through
// Reconciler.SetRestoring.
func (s *Section) Restore(ctx context.Context) (int, error) {
	saved := s.store.PlacedModules(ctx, s.id)
	if len(saved) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	s.modules = saved
	s.mu.Unlock()

	pos := valueobjects.Position{X: s.cfg.DefaultDropX, Y: s.cfg.DefaultDropY}
	for _, m := range saved {
		if _, _, err := s.graph.AddNode(ctx, m.ID, s.id, pos); err != nil {
			return len(saved), fmt.Errorf("restore section %s: %w", s.id, err)
		}
	}
	s.logger.Debug("section restored", zap.Int("modules", len(saved)))
	return len(saved), nil
}

// Drop validates and records a module dropped at pos. A payload from another
// group (or with no group), one without a module id, or a module already
// present is rejected with a warning notice and
// leaves the section unchanged. On success the graph is notified before the
// module is appended.
func (s *Section) Drop(ctx context.Context, payload transfer.Payload, pos valueobjects.Position) error {
	if payload.GroupID != s.id {
		err := apperrors.NewWrongSectionError(payload.Name, s.title).
			WithDetails(map[string]interface{}{"groupId": payload.GroupID, "sectionId": s.id})
		s.reject(ctx, payload, err)
		return err
	}
	if payload.ID == "" {
		err := apperrors.NewValidationError("拖拽数据缺少模块标识").WithCode(apperrors.CodeBadPayload)
		s.reject(ctx, payload, err)
		return err
	}

	s.mu.RLock()
	dup := s.indexLocked(payload.ID) >= 0
	s.mu.RUnlock()
	if dup {
		err := apperrors.NewDuplicateModuleError(payload.Name).
			WithDetails(map[string]interface{}{"moduleId": payload.ID, "sectionId": s.id})
		s.reject(ctx, payload, err)
		return err
	}

	if _, _, err := s.graph.AddNode(ctx, payload.ID, s.id, pos); err != nil {
		return apperrors.NewStorageError("add graph node", err)
	}

	module := payload.Module()
	s.mu.Lock()
	s.modules = append(s.modules, module)
	snapshot := append([]entities.PlacedModule(nil), s.modules...)
	s.mu.Unlock()

	if err := s.store.SavePlacedModules(ctx, s.id, snapshot); err != nil {
		return apperrors.NewStorageError("save placed modules", err)
	}

	s.metrics.PlacementAccepted(s.id)
	s.logger.Info("module placed", zap.String("module_id", module.ID))
	s.notify(ctx, ports.NoticeSuccess, fmt.Sprintf("成功添加 %s 模块", module.Name))
	s.publish(ctx, events.NewModulePlaced(s.id, module, s.now()))
	return nil
}

func (s *Section) reject(ctx context.Context, payload transfer.Payload, err *apperrors.AppError) {
	s.metrics.PlacementRejected(s.id, err.Code)
	s.logger.Info("drop rejected",
		zap.String("module_id", payload.ID),
		zap.String("group_id", payload.GroupID),
		zap.String("code", err.Code))
	s.notify(ctx, ports.NoticeWarning, err.Message)
	s.publish(ctx, events.NewPlacementRejected(s.id, payload.ID, err.Code, err.Message, s.now()))
}

// RemoveModule takes moduleID out of the section. Removing the selected
// module clears the selection. An unknown id is a no-op.
func (s *Section) RemoveModule(ctx context.Context, moduleID string) (bool, error) {
	s.mu.Lock()
	i := s.indexLocked(moduleID)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.modules = append(s.modules[:i:i], s.modules[i+1:]...)
	snapshot := append([]entities.PlacedModule(nil), s.modules...)
	s.mu.Unlock()

	if s.selection != nil && s.selection.IsSelected(moduleID) {
		s.selection.Clear(ctx)
	}

	if err := s.store.SavePlacedModules(ctx, s.id, snapshot); err != nil {
		return true, apperrors.NewStorageError("save placed modules", err)
	}
	s.publish(ctx, events.NewModuleRemoved(s.id, moduleID, s.now()))
	return true, nil
}

// SelectModule shows a placed module in the detail panel.
func (s *Section) SelectModule(ctx context.Context, moduleID string) error {
	s.mu.RLock()
	i := s.indexLocked(moduleID)
	var m entities.PlacedModule
	if i >= 0 {
		m = s.modules[i]
	}
	s.mu.RUnlock()

	if i < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("module %s in section %s", moduleID, s.id))
	}
	if s.selection != nil {
		s.selection.Select(ctx, entities.Selection{Module: m, SectionID: s.id})
	}
	return nil
}

// Reset empties the section and deletes its persisted list.
func (s *Section) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.modules = nil
	s.mu.Unlock()
	return s.store.SavePlacedModules(ctx, s.id, nil)
}

func (s *Section) notify(ctx context.Context, level, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, ports.Notice{Level: level, Message: msg, Source: "section:" + s.id, Time: s.now()})
}

func (s *Section) publish(ctx context.Context, e events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish section event", zap.String("event_type", e.GetEventType()), zap.Error(err))
	}
}
