package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"deployboard/application/auth"
	"deployboard/application/commands"
	"deployboard/application/commands/bus"
	"deployboard/application/configs"
	"deployboard/application/graph"
	"deployboard/domain/core/entities"
	"deployboard/domain/core/valueobjects"
)

// Editor is the slice of the workspace the command handlers drive.
type Editor interface {
	Drop(ctx context.Context, sectionID string, raw []byte, pos valueobjects.Position) (bool, error)
	ClickPlace(ctx context.Context, categoryID, moduleID string) error
	RemoveModule(ctx context.Context, sectionID, moduleID string) error
	SelectModule(ctx context.Context, sectionID, moduleID string) error
	SelectNode(ctx context.Context, nodeID string) error
	ClearSelection(ctx context.Context)
	Connect(ctx context.Context, req graph.EdgeRequest) (entities.GraphEdge, error)
	ToggleCategory(id string) (bool, error)
	Reset(ctx context.Context) error
}

// ConfigRegistry stores configuration drafts.
type ConfigRegistry interface {
	Create(ctx context.Context, req configs.CreateRequest) (configs.Draft, error)
}

// Authenticator runs the login gate.
type Authenticator interface {
	Login(ctx context.Context, username, password string, rememberMe bool) (auth.LoginResult, error)
	Logout(ctx context.Context) error
}

func unexpected(cmd bus.Command) error {
	return fmt.Errorf("unexpected command %T", cmd)
}

// PlacementHandler handles drop, click-place and remove.
type PlacementHandler struct {
	editor Editor
	logger *zap.Logger
}

func NewPlacementHandler(editor Editor, logger *zap.Logger) *PlacementHandler {
	return &PlacementHandler{editor: editor, logger: logger}
}

func (h *PlacementHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case *commands.DropModuleCommand:
		placed, err := h.editor.Drop(ctx, c.SectionID, []byte(c.Payload), c.Position)
		c.Placed = placed
		return err
	case *commands.ClickPlaceModuleCommand:
		return h.editor.ClickPlace(ctx, c.CategoryID, c.ModuleID)
	case *commands.RemoveModuleCommand:
		return h.editor.RemoveModule(ctx, c.SectionID, c.ModuleID)
	default:
		return unexpected(cmd)
	}
}

// SelectionHandler drives the detail panel.
type SelectionHandler struct {
	editor Editor
}

func NewSelectionHandler(editor Editor) *SelectionHandler {
	return &SelectionHandler{editor: editor}
}

func (h *SelectionHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case *commands.SelectModuleCommand:
		return h.editor.SelectModule(ctx, c.SectionID, c.ModuleID)
	case *commands.SelectNodeCommand:
		return h.editor.SelectNode(ctx, c.NodeID)
	case *commands.ClearSelectionCommand:
		h.editor.ClearSelection(ctx)
		return nil
	default:
		return unexpected(cmd)
	}
}

// CanvasHandler handles edges, sidebar toggles and reset.
type CanvasHandler struct {
	editor Editor
	logger *zap.Logger
}

func NewCanvasHandler(editor Editor, logger *zap.Logger) *CanvasHandler {
	return &CanvasHandler{editor: editor, logger: logger}
}

func (h *CanvasHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case *commands.ConnectNodesCommand:
		edge, err := h.editor.Connect(ctx, graph.EdgeRequest{
			Source:       c.Source,
			Target:       c.Target,
			SourceHandle: c.SourceHandle,
			TargetHandle: c.TargetHandle,
		})
		if err != nil {
			return err
		}
		c.Edge = edge
		return nil
	case *commands.ToggleCategoryCommand:
		expanded, err := h.editor.ToggleCategory(c.CategoryID)
		if err != nil {
			return err
		}
		c.Expanded = expanded
		return nil
	case *commands.ResetWorkspaceCommand:
		if err := h.editor.Reset(ctx); err != nil {
			return err
		}
		h.logger.Info("workspace reset")
		return nil
	default:
		return unexpected(cmd)
	}
}

// ConfigHandler stores configuration drafts.
type ConfigHandler struct {
	registry ConfigRegistry
}

func NewConfigHandler(registry ConfigRegistry) *ConfigHandler {
	return &ConfigHandler{registry: registry}
}

func (h *ConfigHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*commands.CreateConfigCommand)
	if !ok {
		return unexpected(cmd)
	}
	draft, err := h.registry.Create(ctx, c.Request)
	if err != nil {
		return err
	}
	c.Draft = draft
	return nil
}

// AuthHandler handles login and logout.
type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

func (h *AuthHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case *commands.LoginCommand:
		res, err := h.auth.Login(ctx, c.Username, c.Password, c.RememberMe)
		if err != nil {
			return err
		}
		c.Result = res
		return nil
	case *commands.LogoutCommand:
		return h.auth.Logout(ctx)
	default:
		return unexpected(cmd)
	}
}

// Register wires every command to its handler.
func Register(b *bus.CommandBus, editor Editor, registry ConfigRegistry, a Authenticator, logger *zap.Logger) error {
	placement := NewPlacementHandler(editor, logger)
	selection := NewSelectionHandler(editor)
	canvas := NewCanvasHandler(editor, logger)
	cfg := NewConfigHandler(registry)
	login := NewAuthHandler(a)

	routes := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{&commands.DropModuleCommand{}, placement},
		{&commands.ClickPlaceModuleCommand{}, placement},
		{&commands.RemoveModuleCommand{}, placement},
		{&commands.SelectModuleCommand{}, selection},
		{&commands.SelectNodeCommand{}, selection},
		{&commands.ClearSelectionCommand{}, selection},
		{&commands.ConnectNodesCommand{}, canvas},
		{&commands.ToggleCategoryCommand{}, canvas},
		{&commands.ResetWorkspaceCommand{}, canvas},
		{&commands.CreateConfigCommand{}, cfg},
		{&commands.LoginCommand{}, login},
		{&commands.LogoutCommand{}, login},
	}
	for _, r := range routes {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}
