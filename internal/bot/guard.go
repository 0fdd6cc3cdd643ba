package bot

import (
	"context"

	"serotonyl.ru/goats-farm/internal/api"
)

// tokenGuard проверяет токен перед каждым вызовом игры.
// Истёкший токен обновляется один раз, до запроса; Login проходит как есть.
type tokenGuard struct {
	api GameAPI
	w   *Worker
}

func (g *tokenGuard) ensure(ctx context.Context) error {
	if !g.w.session.Expired(g.w.now()) {
		return nil
	}
	g.w.logger.Info("Токен истёк посреди цикла, авторизуемся заново")
	return g.w.authenticate(ctx, g.w.logger)
}

func (g *tokenGuard) Login(ctx context.Context, initData string) (api.Result[api.LoginReply], error) {
	return g.api.Login(ctx, initData)
}

func (g *tokenGuard) GetPassInfo(ctx context.Context) (api.Result[api.PassInfo], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.PassInfo]{}, err
	}
	return g.api.GetPassInfo(ctx)
}

func (g *tokenGuard) GetProfile(ctx context.Context) (api.Result[api.Profile], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.Profile]{}, err
	}
	return g.api.GetProfile(ctx)
}

func (g *tokenGuard) ListTasks(ctx context.Context) (api.Result[api.TaskList], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.TaskList]{}, err
	}
	return g.api.ListTasks(ctx)
}

func (g *tokenGuard) ClaimTask(ctx context.Context, taskID string) (api.Result[api.ClaimReply], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.ClaimReply]{}, err
	}
	return g.api.ClaimTask(ctx, taskID)
}

func (g *tokenGuard) GetCheckinOptions(ctx context.Context) (api.Result[api.CheckinOptions], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.CheckinOptions]{}, err
	}
	return g.api.GetCheckinOptions(ctx)
}

func (g *tokenGuard) ClaimCheckin(ctx context.Context, checkinID string) (api.Result[api.ClaimReply], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.ClaimReply]{}, err
	}
	return g.api.ClaimCheckin(ctx, checkinID)
}

func (g *tokenGuard) GetCinemaRemaining(ctx context.Context) (api.Result[api.CinemaRemaining], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.CinemaRemaining]{}, err
	}
	return g.api.GetCinemaRemaining(ctx)
}

func (g *tokenGuard) WatchMovie(ctx context.Context) (api.Result[api.WatchReply], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.WatchReply]{}, err
	}
	return g.api.WatchMovie(ctx)
}

func (g *tokenGuard) GetCatchingGame(ctx context.Context) (api.Result[api.CatchingGame], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.CatchingGame]{}, err
	}
	return g.api.GetCatchingGame(ctx)
}

func (g *tokenGuard) StartGame(ctx context.Context, location int, betAmount int64) (api.Result[api.GameState], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.GameState]{}, err
	}
	return g.api.StartGame(ctx, location, betAmount)
}

func (g *tokenGuard) ContinueGame(ctx context.Context, location int, gameID string) (api.Result[api.GameState], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.GameState]{}, err
	}
	return g.api.ContinueGame(ctx, location, gameID)
}

func (g *tokenGuard) CashoutGame(ctx context.Context, gameID string) (api.Result[api.GameState], error) {
	if err := g.ensure(ctx); err != nil {
		return api.Result[api.GameState]{}, err
	}
	return g.api.CashoutGame(ctx, gameID)
}
