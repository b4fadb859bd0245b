// Package configs holds drafts created through the new-configuration dialog.
package configs

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deployboard/application/ports"
	apperrors "deployboard/pkg/errors"
	"deployboard/pkg/utils"
)

// Platforms a configuration may target.
var Platforms = []string{"v2.0", "v3.0"}

var fieldMessages = map[string]string{
	"Name":     "配置名称不能为空",
	"Version":  "配置版本不能为空",
	"Platform": "请选择所属平台版本",
}

const msgCreated = "配置创建成功"

// CreateRequest is the dialog form.
type CreateRequest struct {
	Name     string `json:"name" validate:"required"`
	Version  string `json:"version" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=v2.0 v3.0"`
}

// Draft is an accepted configuration.
type Draft struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"createdAt"`
}

// Registry keeps drafts in memory for the lifetime of the process.
type Registry struct {
	mu       sync.RWMutex
	drafts   map[string]Draft
	notifier ports.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewRegistry(notifier ports.Notifier, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		drafts:   make(map[string]Draft),
		notifier: notifier,
		logger:   logger.Named("configs"),
		now:      time.Now,
	}
}

// Create validates the form and stores a draft. Field errors are returned
// as a VALIDATION AppError whose details map each field to its message.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (Draft, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Version = strings.TrimSpace(req.Version)

	if err := utils.RawValidate(req); err != nil {
		fields := utils.FieldErrors(err)
		details := make(map[string]interface{}, len(fields))
		var first string
		for _, f := range []string{"Name", "Version", "Platform"} {
			if _, bad := fields[f]; !bad {
				continue
			}
			details[strings.ToLower(f)] = fieldMessages[f]
			if first == "" {
				first = fieldMessages[f]
			}
		}
		return Draft{}, apperrors.NewValidationError(first).WithDetails(details)
	}

	d := Draft{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Version:   req.Version,
		Platform:  req.Platform,
		CreatedAt: r.now(),
	}
	r.mu.Lock()
	r.drafts[d.ID] = d
	r.mu.Unlock()

	r.logger.Info("configuration created",
		zap.String("id", d.ID),
		zap.String("name", d.Name),
		zap.String("version", d.Version),
		zap.String("platform", d.Platform),
	)
	if r.notifier != nil {
		r.notifier.Notify(ctx, ports.Notice{Level: ports.NoticeSuccess, Message: msgCreated, Source: "configs", Time: d.CreatedAt})
	}
	return d, nil
}

// List returns drafts oldest first.
func (r *Registry) List() []Draft {
	r.mu.RLock()
	out := make([]Draft, 0, len(r.drafts))
	for _, d := range r.drafts {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Get returns one draft.
func (r *Registry) Get(id string) (Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drafts[id]
	if !ok {
		return Draft{}, apperrors.NewNotFoundError("configuration")
	}
	return d, nil
}
