// Package commands defines the state-changing requests the editor accepts.
// Commands that produce a value carry it back in their result fields, so
// they are sent by pointer.
package commands

import (
	"deployboard/application/auth"
	"deployboard/application/configs"
	"deployboard/domain/core/entities"
	"deployboard/domain/core/valueobjects"
	"deployboard/pkg/utils"
)

// DropModuleCommand delivers a drag payload onto a section.
type DropModuleCommand struct {
	SectionID string                `json:"sectionId" validate:"required"`
	Payload   string                `json:"payload"`
	Position  valueobjects.Position `json:"position"`

	Placed bool `json:"-"`
}

func (c *DropModuleCommand) Validate() error { return utils.ValidateStruct(c) }

// ClickPlaceModuleCommand places a catalog item into its own category.
type ClickPlaceModuleCommand struct {
	CategoryID string `json:"categoryId" validate:"required"`
	ModuleID   string `json:"moduleId" validate:"required"`
}

func (c *ClickPlaceModuleCommand) Validate() error { return utils.ValidateStruct(c) }

type RemoveModuleCommand struct {
	SectionID string `json:"sectionId" validate:"required"`
	ModuleID  string `json:"moduleId" validate:"required"`
}

func (c *RemoveModuleCommand) Validate() error { return utils.ValidateStruct(c) }

type SelectModuleCommand struct {
	SectionID string `json:"sectionId" validate:"required"`
	ModuleID  string `json:"moduleId" validate:"required"`
}

func (c *SelectModuleCommand) Validate() error { return utils.ValidateStruct(c) }

type SelectNodeCommand struct {
	NodeID string `json:"nodeId" validate:"required"`
}

func (c *SelectNodeCommand) Validate() error { return utils.ValidateStruct(c) }

type ClearSelectionCommand struct{}

func (c *ClearSelectionCommand) Validate() error { return nil }

// ConnectNodesCommand adds an edge. Endpoints are not checked against the
// node set.
type ConnectNodesCommand struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`

	Edge entities.GraphEdge `json:"-"`
}

func (c *ConnectNodesCommand) Validate() error { return utils.ValidateStruct(c) }

type ToggleCategoryCommand struct {
	CategoryID string `json:"categoryId" validate:"required"`

	Expanded bool `json:"-"`
}

func (c *ToggleCategoryCommand) Validate() error { return utils.ValidateStruct(c) }

// ResetWorkspaceCommand clears placed modules, graph and selection.
type ResetWorkspaceCommand struct{}

func (c *ResetWorkspaceCommand) Validate() error { return nil }

// CreateConfigCommand field checks happen in the registry, which knows the
// per-field messages.
type CreateConfigCommand struct {
	Request configs.CreateRequest

	Draft configs.Draft `json:"-"`
}

func (c *CreateConfigCommand) Validate() error { return nil }

// LoginCommand is checked by the auth service so that every failure reads
// the same to the user.
type LoginCommand struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`

	Result auth.LoginResult `json:"-"`
}

func (c *LoginCommand) Validate() error { return nil }

type LogoutCommand struct{}

func (c *LogoutCommand) Validate() error { return nil }
