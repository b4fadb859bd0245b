package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"deployboard/application/auth"
	"deployboard/application/commands"
	"deployboard/application/commands/bus"
	"deployboard/application/configs"
	"deployboard/application/graph"
	"deployboard/domain/core/entities"
	"deployboard/domain/core/valueobjects"
	apperrors "deployboard/pkg/errors"
)

type mockEditor struct{ mock.Mock }

func (m *mockEditor) Drop(ctx context.Context, sectionID string, raw []byte, pos valueobjects.Position) (bool, error) {
	args := m.Called(sectionID, string(raw), pos)
	return args.Bool(0), args.Error(1)
}

func (m *mockEditor) ClickPlace(ctx context.Context, categoryID, moduleID string) error {
	return m.Called(categoryID, moduleID).Error(0)
}

func (m *mockEditor) RemoveModule(ctx context.Context, sectionID, moduleID string) error {
	return m.Called(sectionID, moduleID).Error(0)
}

func (m *mockEditor) SelectModule(ctx context.Context, sectionID, moduleID string) error {
	return m.Called(sectionID, moduleID).Error(0)
}

func (m *mockEditor) SelectNode(ctx context.Context, nodeID string) error {
	return m.Called(nodeID).Error(0)
}

func (m *mockEditor) ClearSelection(ctx context.Context) { m.Called() }

func (m *mockEditor) Connect(ctx context.Context, req graph.EdgeRequest) (entities.GraphEdge, error) {
	args := m.Called(req)
	return args.Get(0).(entities.GraphEdge), args.Error(1)
}

func (m *mockEditor) ToggleCategory(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *mockEditor) Reset(ctx context.Context) error { return m.Called().Error(0) }

type mockRegistry struct{ mock.Mock }

func (m *mockRegistry) Create(ctx context.Context, req configs.CreateRequest) (configs.Draft, error) {
	args := m.Called(req)
	return args.Get(0).(configs.Draft), args.Error(1)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Login(ctx context.Context, username, password string, rememberMe bool) (auth.LoginResult, error) {
	args := m.Called(username, password, rememberMe)
	return args.Get(0).(auth.LoginResult), args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context) error { return m.Called().Error(0) }

type harness struct {
	bus      *bus.CommandBus
	editor   *mockEditor
	registry *mockRegistry
	auth     *mockAuth
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		bus:      bus.NewCommandBus(bus.LoggingMiddleware(zap.NewNop())),
		editor:   &mockEditor{},
		registry: &mockRegistry{},
		auth:     &mockAuth{},
	}
	require.NoError(t, Register(h.bus, h.editor, h.registry, h.auth, zap.NewNop()))
	return h
}

func TestDropCarriesPlacedFlag(t *testing.T) {
	h := newHarness(t)
	pos := valueobjects.Position{X: 1, Y: 2}
	h.editor.On("Drop", "database", "{}", pos).Return(true, nil).Once()

	cmd := &commands.DropModuleCommand{SectionID: "database", Payload: "{}", Position: pos}
	require.NoError(t, h.bus.Send(context.Background(), cmd))
	assert.True(t, cmd.Placed)
	h.editor.AssertExpectations(t)
}

func TestDropRejectionSurfaces(t *testing.T) {
	h := newHarness(t)
	h.editor.On("Drop", "database", "{}", valueobjects.Position{}).
		Return(false, apperrors.NewDuplicateModuleError("Redis")).Once()

	cmd := &commands.DropModuleCommand{SectionID: "database", Payload: "{}"}
	err := h.bus.Send(context.Background(), cmd)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateModule))
	assert.False(t, cmd.Placed)
}

func TestCommandValidation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		cmd  bus.Command
	}{
		{"drop without section", &commands.DropModuleCommand{}},
		{"click without module", &commands.ClickPlaceModuleCommand{CategoryID: "database"}},
		{"remove without ids", &commands.RemoveModuleCommand{}},
		{"select node without id", &commands.SelectNodeCommand{}},
		{"connect without target", &commands.ConnectNodesCommand{Source: "a"}},
		{"toggle without category", &commands.ToggleCategoryCommand{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.bus.Send(context.Background(), tt.cmd)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
	h.editor.AssertNotCalled(t, "Drop", mock.Anything, mock.Anything, mock.Anything)
}

func TestSelectionCommands(t *testing.T) {
	h := newHarness(t)
	h.editor.On("SelectModule", "database", "redis").Return(nil).Once()
	h.editor.On("SelectNode", "n1").Return(nil).Once()
	h.editor.On("ClearSelection").Return().Once()

	ctx := context.Background()
	require.NoError(t, h.bus.Send(ctx, &commands.SelectModuleCommand{SectionID: "database", ModuleID: "redis"}))
	require.NoError(t, h.bus.Send(ctx, &commands.SelectNodeCommand{NodeID: "n1"}))
	require.NoError(t, h.bus.Send(ctx, &commands.ClearSelectionCommand{}))
	h.editor.AssertExpectations(t)
}

func TestCanvasCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	edge := entities.GraphEdge{ID: "e1", Source: "a", Target: "b", SourceHandle: "out"}
	h.editor.On("Connect", graph.EdgeRequest{Source: "a", Target: "b", SourceHandle: "out"}).Return(edge, nil).Once()
	h.editor.On("ToggleCategory", "database").Return(false, nil).Once()
	h.editor.On("Reset").Return(nil).Once()
	h.editor.On("ClickPlace", "database", "redis").Return(nil).Once()
	h.editor.On("RemoveModule", "database", "redis").Return(nil).Once()

	connect := &commands.ConnectNodesCommand{Source: "a", Target: "b", SourceHandle: "out"}
	require.NoError(t, h.bus.Send(ctx, connect))
	assert.Equal(t, edge, connect.Edge)

	toggle := &commands.ToggleCategoryCommand{CategoryID: "database", Expanded: true}
	require.NoError(t, h.bus.Send(ctx, toggle))
	assert.False(t, toggle.Expanded)

	require.NoError(t, h.bus.Send(ctx, &commands.ResetWorkspaceCommand{}))
	require.NoError(t, h.bus.Send(ctx, &commands.ClickPlaceModuleCommand{CategoryID: "database", ModuleID: "redis"}))
	require.NoError(t, h.bus.Send(ctx, &commands.RemoveModuleCommand{SectionID: "database", ModuleID: "redis"}))
	h.editor.AssertExpectations(t)
}

func TestConfigAndAuthCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := configs.CreateRequest{Name: "prod", Version: "1", Platform: "v2.0"}
	h.registry.On("Create", req).Return(configs.Draft{ID: "d1", Name: "prod"}, nil).Once()
	create := &commands.CreateConfigCommand{Request: req}
	require.NoError(t, h.bus.Send(ctx, create))
	assert.Equal(t, "d1", create.Draft.ID)

	h.auth.On("Login", "admin", "admin", true).Return(auth.LoginResult{Token: "t", Username: "admin"}, nil).Once()
	login := &commands.LoginCommand{Username: "admin", Password: "admin", RememberMe: true}
	require.NoError(t, h.bus.Send(ctx, login))
	assert.Equal(t, "t", login.Result.Token)

	h.auth.On("Logout").Return(nil).Once()
	require.NoError(t, h.bus.Send(ctx, &commands.LogoutCommand{}))

	h.registry.AssertExpectations(t)
	h.auth.AssertExpectations(t)
}
