package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deployboard/application/graph"
	"deployboard/application/ports"
	"deployboard/application/transfer"
	"deployboard/domain/catalog"
	"deployboard/domain/core/valueobjects"
	"deployboard/infrastructure/persistence/expiring"
	"deployboard/infrastructure/persistence/kv"
	"deployboard/infrastructure/persistence/localstore"
	apperrors "deployboard/pkg/errors"
)

type env struct {
	backend *kv.MemoryStore
	store   *localstore.Store
	now     time.Time
}

func newEnv() *env {
	e := &env{backend: kv.NewMemoryStore(), now: time.UnixMilli(1710000000000)}
	e.store = localstore.New(expiring.New(e.backend, expiring.WithClock(e.clock)), nil)
	return e
}

func (e *env) clock() time.Time { return e.now }

func (e *env) workspace(t *testing.T) *Workspace {
	t.Helper()
	w := New(Dependencies{Store: e.store, Catalog: catalog.Default(), Clock: e.clock})
	_, err := w.Mount(context.Background())
	require.NoError(t, err)
	return w
}

func rawPayload(t *testing.T, moduleID, groupID string) []byte {
	t.Helper()
	def, ok := catalog.Default().Lookup(moduleID)
	require.True(t, ok)
	data, err := transfer.Encode(def, groupID)
	require.NoError(t, err)
	return data
}

func noticeMessages(ns []ports.Notice) []string {
	var out []string
	for _, n := range ns {
		out = append(out, n.Message)
	}
	return out
}

func TestRedisScenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	w := e.workspace(t)

	placed, err := w.Drop(ctx, "database", rawPayload(t, "redis", "database"), valueobjects.Position{X: 10, Y: 20})
	require.NoError(t, err)
	assert.True(t, placed)

	sec, err := w.Section("database")
	require.NoError(t, err)
	require.Len(t, sec.Modules, 1)
	assert.Equal(t, "redis", sec.Modules[0].ID)

	nodes, _ := w.Graph()
	require.Len(t, nodes, 1)
	assert.Equal(t, "redis-database-1710000000000", nodes[0].ID.String())
	assert.Equal(t, []string{"成功添加 Redis 模块", "成功添加 Redis 模块"}, noticeMessages(w.DrainNotices()))

	placed, err = w.Drop(ctx, "database", rawPayload(t, "redis", "database"), valueobjects.Position{})
	assert.False(t, placed)
	require.Error(t, err)
	assert.Contains(t, apperrors.GetAppError(err).Message, "已存在")

	placed, err = w.Drop(ctx, "database", rawPayload(t, "kafka", "open-source"), valueobjects.Position{})
	assert.False(t, placed)
	require.Error(t, err)
	assert.Contains(t, apperrors.GetAppError(err).Message, "不能添加到")

	nodes, _ = w.Graph()
	assert.Len(t, nodes, 1)
	assert.Len(t, w.DrainNotices(), 2)
}

func TestMountReplaysPersistedSections(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	first := e.workspace(t)
	require.NoError(t, first.ClickPlace(ctx, "database", "mysql"))
	require.NoError(t, first.ClickPlace(ctx, "database", "redis"))
	require.NoError(t, first.ClickPlace(ctx, "messaging", "kafka-msg"))

	require.NoError(t, e.store.SaveNodes(ctx, nil))

	second := New(Dependencies{Store: e.store, Catalog: catalog.Default(), Clock: e.clock})
	res, err := second.Mount(ctx)
	require.NoError(t, err)
	assert.Equal(t, graph.SourceReplay, res.Source)
	assert.Equal(t, 3, res.Nodes)

	nodes, _ := second.Graph()
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID.String()
	}
	assert.Equal(t, []string{"mysql-database-0", "redis-database-1", "kafka-msg-messaging-0"}, ids)
	assert.Equal(t, valueobjects.Position{X: 250, Y: 100}, nodes[1].Position)

	assert.Empty(t, second.DrainNotices(), "restore is silent")

	res, err = second.Mount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Nodes)
}

func TestMountKeepsSnapshotNodes(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	first := e.workspace(t)
	_, err := first.Drop(ctx, "database", rawPayload(t, "redis", "database"), valueobjects.Position{X: 333, Y: 444})
	require.NoError(t, err)

	second := e.workspace(t)
	nodes, _ := second.Graph()
	require.Len(t, nodes, 1)
	assert.Equal(t, valueobjects.Position{X: 333, Y: 444}, nodes[0].Position)
	assert.Equal(t, "redis-database-1710000000000", nodes[0].ID.String())
}

func TestMountAfterExpiryYieldsEmptyWorkspace(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	first := e.workspace(t)
	require.NoError(t, first.ClickPlace(ctx, "database", "redis"))

	e.now = e.now.Add(7*24*time.Hour + time.Millisecond)
	second := e.workspace(t)

	nodes, edges := second.Graph()
	assert.Empty(t, nodes)
	assert.Empty(t, edges)
	sec, _ := second.Section("database")
	assert.Empty(t, sec.Modules)
	assert.Equal(t, 0, e.backend.Len())
}

func TestUnparseablePayloadIsSilent(t *testing.T) {
	ctx := context.Background()
	w := newEnv().workspace(t)

	placed, err := w.Drop(ctx, "database", []byte("{not json"), valueobjects.Position{})
	require.NoError(t, err)
	assert.False(t, placed)
	assert.Empty(t, w.DrainNotices())

	nodes, _ := w.Graph()
	assert.Empty(t, nodes)
}

func TestDropWithoutGroupWarns(t *testing.T) {
	ctx := context.Background()
	w := newEnv().workspace(t)

	raw := []byte(`{"id":"redis","name":"Redis","icon":"database","version":"6.2"}`)
	placed, err := w.Drop(ctx, "database", raw, valueobjects.Position{})
	assert.False(t, placed)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeWrongSection))

	notices := w.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, ports.NoticeWarning, notices[0].Level)
	assert.Contains(t, notices[0].Message, "不能添加到")

	nodes, _ := w.Graph()
	assert.Empty(t, nodes)
}

func TestDropValidation(t *testing.T) {
	ctx := context.Background()
	w := newEnv().workspace(t)

	_, err := w.Drop(ctx, "nowhere", rawPayload(t, "redis", "database"), valueobjects.Position{})
	assert.True(t, apperrors.IsNotFound(err))

	err = w.ClickPlace(ctx, "database", "kafka")
	assert.True(t, apperrors.IsNotFound(err))

	err = w.ClickPlace(ctx, "ghost", "kafka")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRemoveModuleCleansGraphAndSelection(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	w := e.workspace(t)

	require.NoError(t, w.ClickPlace(ctx, "database", "redis"))
	e.now = e.now.Add(time.Millisecond)
	require.NoError(t, w.ClickPlace(ctx, "database", "mysql"))

	nodes, _ := w.Graph()
	require.Len(t, nodes, 2)
	_, err := w.Connect(ctx, graph.EdgeRequest{Source: nodes[0].ID.String(), Target: nodes[1].ID.String()})
	require.NoError(t, err)

	require.NoError(t, w.SelectNode(ctx, nodes[0].ID.String()))
	sel, detail, ok := w.Selection()
	require.True(t, ok)
	assert.Equal(t, "redis", sel.Module.ID)
	assert.Equal(t, "database", sel.SectionID)
	assert.Equal(t, "Redis:6.2", detail.Groups[1].Fields[0].Value)

	require.NoError(t, w.RemoveModule(ctx, "database", "redis"))

	_, _, ok = w.Selection()
	assert.False(t, ok)
	nodes, edges := w.Graph()
	require.Len(t, nodes, 1)
	assert.Equal(t, "mysql", nodes[0].Data.ID)
	assert.Empty(t, edges)

	require.NoError(t, w.RemoveModule(ctx, "database", "mysql"))
	_, ok, _ = e.backend.GetItem(ctx, localstore.SectionKey("database"))
	assert.False(t, ok)
	_, ok, _ = e.backend.GetItem(ctx, "flow-nodes")
	assert.False(t, ok)

	assert.NoError(t, w.RemoveModule(ctx, "database", "mysql"))
	assert.True(t, apperrors.IsNotFound(w.RemoveModule(ctx, "nowhere", "mysql")))
}

func TestSelectionLastClickWins(t *testing.T) {
	ctx := context.Background()
	w := newEnv().workspace(t)
	require.NoError(t, w.ClickPlace(ctx, "database", "redis"))
	require.NoError(t, w.ClickPlace(ctx, "container-runtime", "docker"))

	require.NoError(t, w.SelectModule(ctx, "database", "redis"))
	require.NoError(t, w.SelectModule(ctx, "container-runtime", "docker"))

	sel, _, ok := w.Selection()
	require.True(t, ok)
	assert.Equal(t, "docker", sel.Module.ID)

	w.ClearSelection(ctx)
	_, _, ok = w.Selection()
	assert.False(t, ok)

	assert.True(t, apperrors.IsNotFound(w.SelectNode(ctx, "missing")))
	assert.True(t, apperrors.IsNotFound(w.SelectModule(ctx, "database", "mysql")))
}

func TestConnectRequiresEndpoints(t *testing.T) {
	w := newEnv().workspace(t)
	_, err := w.Connect(context.Background(), graph.EdgeRequest{Source: "a"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestSidebar(t *testing.T) {
	w := newEnv().workspace(t)

	for _, c := range w.Sidebar() {
		assert.True(t, c.Expanded, c.ID)
	}

	expanded, err := w.ToggleCategory("database")
	require.NoError(t, err)
	assert.False(t, expanded)
	expanded, err = w.ToggleCategory("database")
	require.NoError(t, err)
	assert.True(t, expanded)

	_, err = w.ToggleCategory("nope")
	assert.True(t, apperrors.IsNotFound(err))

	assert.Equal(t, "搜索模板...", w.SearchPlaceholder())
	assert.Len(t, w.Search("docker"), 1)
}

func TestDragPayload(t *testing.T) {
	w := newEnv().workspace(t)

	data, err := w.DragPayload("open-source", "kafka")
	require.NoError(t, err)
	p, err := transfer.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "open-source", p.GroupID)

	_, err = w.DragPayload("open-source", "redis")
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	w := e.workspace(t)
	require.NoError(t, e.store.SetAuthenticated(ctx, true))
	require.NoError(t, w.ClickPlace(ctx, "database", "redis"))
	require.NoError(t, w.SelectModule(ctx, "database", "redis"))

	require.NoError(t, w.Reset(ctx))

	for _, s := range w.Sections() {
		assert.Empty(t, s.Modules)
	}
	_, _, ok := w.Selection()
	assert.False(t, ok)
	assert.Equal(t, 1, e.backend.Len())
}

func TestNoticeBoardSubscribersAndCap(t *testing.T) {
	b := NewNoticeBoard()
	var got []string
	b.Subscribe(func(n ports.Notice) { got = append(got, n.Message) })

	for i := 0; i < maxPendingNotices+5; i++ {
		b.Notify(context.Background(), ports.Notice{Message: "m"})
	}
	assert.Len(t, got, maxPendingNotices+5)
	assert.Len(t, b.Drain(), maxPendingNotices)
	assert.Empty(t, b.Drain())
}

func TestSectionsOrder(t *testing.T) {
	w := newEnv().workspace(t)
	var ids []string
	for _, s := range w.Sections() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"open-source", "database", "messaging", "base-component", "base-runtime", "container-runtime"}, ids)

	_, err := w.Section("nope")
	assert.True(t, apperrors.IsNotFound(err))
}
