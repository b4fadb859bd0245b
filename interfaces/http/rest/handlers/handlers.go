// Package handlers implements the REST endpoints. Writes go through the
// command bus; reads go straight to the workspace.
package handlers

import (
	"context"

	"deployboard/application/auth"
	"deployboard/application/commands/bus"
	"deployboard/application/configs"
	"deployboard/application/ports"
	"deployboard/application/selection"
	"deployboard/application/workspace"
	"deployboard/domain/core/entities"
)

// WorkspaceReader is the read side of the editor.
type WorkspaceReader interface {
	Sidebar() []workspace.SidebarCategory
	Search(q string) []entities.Category
	SearchPlaceholder() string
	DragPayload(categoryID, moduleID string) ([]byte, error)
	Sections() []workspace.SectionView
	Section(id string) (workspace.SectionView, error)
	Graph() ([]entities.GraphNode, []entities.GraphEdge)
	Selection() (entities.Selection, selection.Detail, bool)
	DrainNotices() []ports.Notice
}

// SessionReader reports the login state.
type SessionReader interface {
	Session(ctx context.Context) auth.SessionState
}

// ConfigLister lists configuration drafts.
type ConfigLister interface {
	List() []configs.Draft
}

// CommandSender dispatches commands.
type CommandSender interface {
	Send(ctx context.Context, cmd bus.Command) error
}
