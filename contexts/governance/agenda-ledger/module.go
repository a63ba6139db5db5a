package agendaledger

import (
	"log/slog"

	httpadapter "govote/contexts/governance/agenda-ledger/adapters/http"
	"govote/contexts/governance/agenda-ledger/adapters/memory"
	"govote/contexts/governance/agenda-ledger/application/commands"
	"govote/contexts/governance/agenda-ledger/application/queries"
	"govote/contexts/governance/agenda-ledger/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Agendas ports.AgendaRepository
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

func NewModule(deps Dependencies) Module {
	engine := commands.EngineUseCase{
		Agendas: deps.Agendas,
		Outbox:  deps.Outbox,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Logger:  deps.Logger,
	}
	views := queries.ViewUseCase{
		Agendas: deps.Agendas,
	}
	return Module{
		Handler: httpadapter.Handler{
			Engine: engine,
			Views:  views,
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Agendas: store,
		Outbox:  store,
		Clock:   store,
		IDGen:   store,
		Logger:  logger,
	})
	module.Store = store
	return module
}
