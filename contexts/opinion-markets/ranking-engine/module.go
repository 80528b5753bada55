package rankingengine

import (
	"log/slog"

	httpadapter "scarab/contexts/opinion-markets/ranking-engine/adapters/http"
	"scarab/contexts/opinion-markets/ranking-engine/adapters/memory"
	"scarab/contexts/opinion-markets/ranking-engine/application/commands"
	"scarab/contexts/opinion-markets/ranking-engine/application/queries"
	"scarab/contexts/opinion-markets/ranking-engine/application/workers"
	"scarab/contexts/opinion-markets/ranking-engine/domain/services"
	"scarab/contexts/opinion-markets/ranking-engine/ports"
)

type Module struct {
	Handler       httpadapter.Handler
	ResolutionJob workers.ResolutionJob
	OutboxRelay   workers.OutboxRelay
	Store         *memory.Store
}

type Dependencies struct {
	Store        ports.Store
	Publisher    ports.EventPublisher
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Params       services.ResolutionParams
	DefaultStake float64
	VoteBonus    float64
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	voteUseCase := commands.VoteUseCase{
		Rankings:     deps.Store,
		Votes:        deps.Store,
		Users:        deps.Store,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		DefaultStake: deps.DefaultStake,
		VoteBonus:    deps.VoteBonus,
		Logger:       deps.Logger,
	}
	resolveUseCase := commands.ResolveUseCase{
		Store:  deps.Store,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Params: deps.Params,
		Logger: deps.Logger,
	}
	rankingQueries := queries.RankingQueries{
		Rankings:    deps.Store,
		Votes:       deps.Store,
		Resolutions: deps.Store,
		Clock:       deps.Clock,
	}
	previewQueries := queries.PreviewQueries{
		Rankings: deps.Store,
		Votes:    deps.Store,
		Clock:    deps.Clock,
		Params:   deps.Params,
	}
	return Module{
		Handler: httpadapter.Handler{
			Votes:    voteUseCase,
			Resolver: resolveUseCase,
			Rankings: rankingQueries,
			Previews: previewQueries,
			Logger:   deps.Logger,
		},
		ResolutionJob: workers.ResolutionJob{
			Resolver: resolveUseCase,
			Logger:   deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Store,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Store:     store,
		Publisher: publisher,
		Clock:     store,
		IDGen:     store,
		Params:    services.DefaultResolutionParams(),
		Logger:    logger,
	})
	module.Store = store
	return module
}
