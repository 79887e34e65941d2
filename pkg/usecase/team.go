package usecase

import (
	"context"
	"sync"

	"github.com/secmon-lab/iris/pkg/domain/model"
	"github.com/secmon-lab/iris/pkg/utils/logging"
)

// TeamLookup identifies the workspace of a token (auth.test)
type TeamLookup interface {
	GetTeamInfo(ctx context.Context) (*model.TeamInfo, error)
}

// TeamResolver memoizes the workspace identity after the first successful lookup
type TeamResolver struct {
	lookup TeamLookup
	mu     sync.Mutex
	team   *model.TeamInfo
}

// NewTeamResolver creates a TeamResolver backed by lookup
func NewTeamResolver(lookup TeamLookup) *TeamResolver {
	return &TeamResolver{lookup: lookup}
}

// Get returns the workspace identity, or nil when it cannot be determined.
// A failure is logged and not memoized.
func (r *TeamResolver) Get(ctx context.Context) *model.TeamInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.team != nil {
		return r.team
	}
	if r.lookup == nil {
		return nil
	}

	team, err := r.lookup.GetTeamInfo(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to resolve team info", "error", err.Error())
		return nil
	}

	r.team = team
	return team
}
