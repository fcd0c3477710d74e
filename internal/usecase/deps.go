package usecase

import (
	"io"
	"log/slog"
	"time"

	"MemberSync/internal/batch"
	"MemberSync/internal/ports"
	"MemberSync/internal/rank"
)

// StageRoles are the membership-stage roles toggled by the jobs.
type StageRoles struct {
	PreInitiate  string
	PostInitiate string
	Senior       string
}

// Deps wires all driven adapters into the use cases.
type Deps struct {
	Store     ports.MemberStore
	Directory ports.Directory
	Resolver  *rank.Resolver
	Roles     StageRoles
	Runner    *batch.Runner
	Throttle  time.Duration
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}
