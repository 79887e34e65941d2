package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/iris/pkg/domain/model"
	"github.com/secmon-lab/iris/pkg/usecase"
)

func TestTeamResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("memoizes successful lookup", func(t *testing.T) {
		svc := &mockSlackService{}
		r := usecase.NewTeamResolver(svc)

		gt.Value(t, r.Get(ctx)).Equal(&model.TeamInfo{ID: "T1", Domain: "acme"})
		gt.Value(t, r.Get(ctx).Domain).Equal("acme")
		gt.Value(t, svc.teamInfoCalls.Load()).Equal(int32(1))
	})

	t.Run("failure returns nil and is retried", func(t *testing.T) {
		fail := true
		svc := &mockSlackService{
			getTeamInfoFn: func(_ context.Context) (*model.TeamInfo, error) {
				if fail {
					return nil, errors.New("invalid_auth")
				}
				return &model.TeamInfo{ID: "T2", Domain: "beta"}, nil
			},
		}
		r := usecase.NewTeamResolver(svc)

		gt.Value(t, r.Get(ctx)).Nil()
		fail = false
		gt.Value(t, r.Get(ctx).Domain).Equal("beta")
		gt.Value(t, svc.teamInfoCalls.Load()).Equal(int32(2))
	})

	t.Run("nil lookup", func(t *testing.T) {
		gt.Value(t, usecase.NewTeamResolver(nil).Get(ctx)).Nil()
	})
}
