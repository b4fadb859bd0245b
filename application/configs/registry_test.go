package configs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "deployboard/pkg/errors"
)

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name        string
		req         CreateRequest
		wantMessage string
		wantFields  []string
	}{
		{
			name:        "empty form reports name first",
			req:         CreateRequest{},
			wantMessage: "配置名称不能为空",
			wantFields:  []string{"name", "version", "platform"},
		},
		{
			name:        "blank name",
			req:         CreateRequest{Name: "   ", Version: "1.0", Platform: "v2.0"},
			wantMessage: "配置名称不能为空",
			wantFields:  []string{"name"},
		},
		{
			name:        "missing version",
			req:         CreateRequest{Name: "prod", Platform: "v3.0"},
			wantMessage: "配置版本不能为空",
			wantFields:  []string{"version"},
		},
		{
			name:        "unknown platform",
			req:         CreateRequest{Name: "prod", Version: "1.0", Platform: "v4.0"},
			wantMessage: "请选择所属平台版本",
			wantFields:  []string{"platform"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil, nil)
			_, err := r.Create(context.Background(), tt.req)
			require.Error(t, err)
			appErr := apperrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, tt.wantMessage, appErr.Message)
			assert.Len(t, appErr.Details, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, appErr.Details, f)
			}
			assert.Empty(t, r.List())
		})
	}
}

func TestCreateAndList(t *testing.T) {
	r := NewRegistry(nil, nil)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	a, err := r.Create(context.Background(), CreateRequest{Name: " prod ", Version: "1.0", Platform: "v2.0"})
	require.NoError(t, err)
	assert.Equal(t, "prod", a.Name)
	assert.NotEmpty(t, a.ID)

	b, err := r.Create(context.Background(), CreateRequest{Name: "staging", Version: "2.0", Platform: "v3.0"})
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	got, err := r.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "staging", got.Name)

	_, err = r.Get("missing")
	assert.True(t, apperrors.IsNotFound(err))
}
