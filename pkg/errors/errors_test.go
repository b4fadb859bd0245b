package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacementRejections(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantCode string
		contains string
		status   int
	}{
		{
			name:     "wrong section",
			err:      NewWrongSectionError("Redis", "开源组件"),
			wantType: ErrorTypeValidation,
			wantCode: CodeWrongSection,
			contains: "不能添加到",
			status:   http.StatusBadRequest,
		},
		{
			name:     "duplicate",
			err:      NewDuplicateModuleError("Redis"),
			wantType: ErrorTypeConflict,
			wantCode: CodeDuplicateModule,
			contains: "已存在",
			status:   http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Contains(t, tt.err.Message, tt.contains)
			assert.Equal(t, tt.status, StatusCode(tt.err))
			assert.True(t, HasCode(tt.err, tt.wantCode))
		})
	}
}

func TestGetAppErrorThroughWrapping(t *testing.T) {
	base := NewNotFoundError("section database")
	wrapped := fmt.Errorf("loading: %w", base)

	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "section database not found", got.Message)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	plain := fmt.Errorf("disk full")
	err := Wrap(plain, "persist nodes")
	require.True(t, IsType(err, ErrorTypeInternal))
	assert.ErrorIs(t, err, plain)

	app := NewValidationError("bad")
	err = Wrapf(app, "drop on %s", "redis")
	assert.Equal(t, "drop on redis: bad", GetAppError(err).Message)
}

func TestStatusCodeDefaults(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusCode(fmt.Errorf("boom")))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(NewUnauthorizedError("")))
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(NewUnavailableError("store")))
}

func TestStorageErrorKeepsCause(t *testing.T) {
	cause := fmt.Errorf("badger closed")
	err := NewStorageError("set", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "storage operation 'set' failed")
}
