package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mcofie/itinero-web-sub003/internal/audit/domain"
	"github.com/mcofie/itinero-web-sub003/internal/clock"
)

// Record describes one action to write to the audit trail.
type Record struct {
	ActorType  domain.ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
}

// Recorder persists audit records. Writes are best effort: a failed
// audit insert is logged but never fails the action it describes.
type Recorder struct {
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
	log   *zap.Logger
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Repo  domain.Repository
	GenID *snowflake.Node
	Clock clock.Clock
	Log   *zap.Logger
}

func NewService(p Params) *Recorder {
	return &Recorder{
		db:    p.DB,
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
		log:   p.Log.Named("audit"),
	}
}

// Write records one action. It never returns an error.
func (r *Recorder) Write(ctx context.Context, record Record) {
	r.WriteTx(ctx, r.db, record)
}

// WriteTx records one action inside a caller-owned transaction.
func (r *Recorder) WriteTx(ctx context.Context, tx *gorm.DB, record Record) {
	if r == nil || tx == nil {
		return
	}
	action := strings.TrimSpace(record.Action)
	if action == "" {
		return
	}

	entry := &domain.AuditLog{
		ID:         r.genID.Generate(),
		ActorType:  string(record.ActorType),
		Action:     action,
		TargetType: strings.TrimSpace(record.TargetType),
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  r.clock.Now(),
	}
	if entry.ActorType == "" {
		entry.ActorType = string(domain.ActorTypeSystem)
	}
	if actorID := strings.TrimSpace(record.ActorID); actorID != "" {
		entry.ActorID = &actorID
	}
	if targetID := strings.TrimSpace(record.TargetID); targetID != "" {
		entry.TargetID = &targetID
	}
	if ip := strings.TrimSpace(record.IPAddress); ip != "" {
		entry.IPAddress = &ip
	}
	if agent := strings.TrimSpace(record.UserAgent); agent != "" {
		entry.UserAgent = &agent
	}
	for key, value := range record.Metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		entry.Metadata[key] = value
	}

	if err := r.repo.Insert(ctx, tx, entry); err != nil {
		r.log.Warn("audit write failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// List returns audit entries matching the filter, newest first.
func (r *Recorder) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	return r.repo.List(ctx, r.db, filter)
}
