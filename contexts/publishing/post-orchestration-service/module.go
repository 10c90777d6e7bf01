package postorchestrationservice

import (
	"log/slog"

	httpadapter "crosspost/contexts/publishing/post-orchestration-service/adapters/http"
	"crosspost/contexts/publishing/post-orchestration-service/adapters/memory"
	"crosspost/contexts/publishing/post-orchestration-service/adapters/websites"
	"crosspost/contexts/publishing/post-orchestration-service/application/commands"
	"crosspost/contexts/publishing/post-orchestration-service/application/posting"
	"crosspost/contexts/publishing/post-orchestration-service/application/queries"
	"crosspost/contexts/publishing/post-orchestration-service/application/queue"
	"crosspost/contexts/publishing/post-orchestration-service/application/resume"
	"crosspost/contexts/publishing/post-orchestration-service/application/workers"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Commands commands.UseCase
	Queries  queries.UseCase
	Queue    *queue.Queue
	Registry *posting.Registry
	Manager  posting.Manager

	Ticker   workers.QueueTicker
	Recovery workers.CrashRecovery
	Finished workers.AttemptFinishedConsumer

	Store    *memory.Store
	Catalog  *memory.Catalog
	Websites *websites.Registry
}

type Dependencies struct {
	Records     ports.PostRecordRepository
	Ledger      ports.EventLedger
	QueueRepo   ports.PostQueueRepository
	Submissions ports.SubmissionReader
	Accounts    ports.AccountReader
	Websites    ports.WebsiteRegistry
	Resizer     ports.FileResizer
	Publisher   ports.EventPublisher
	Subscriber  ports.EventSubscriber
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
	StartPaused bool
}

func NewModule(deps Dependencies) Module {
	builder := resume.Builder{
		Records: deps.Records,
		Ledger:  deps.Ledger,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Logger:  deps.Logger,
	}
	manager := posting.Manager{
		Records:     deps.Records,
		Ledger:      deps.Ledger,
		Submissions: deps.Submissions,
		Accounts:    deps.Accounts,
		Websites:    deps.Websites,
		Resizer:     deps.Resizer,
		Resume:      builder,
		Publisher:   deps.Publisher,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	registry := posting.NewRegistry(manager, deps.Logger)
	postQueue := &queue.Queue{
		Repository:  deps.QueueRepo,
		Records:     deps.Records,
		Submissions: deps.Submissions,
		Builder:     builder,
		Runner:      registry,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	postQueue.SetPaused(deps.StartPaused)

	commandUseCase := commands.UseCase{
		Queue:    postQueue,
		Registry: registry,
		Logger:   deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Records:   deps.Records,
		Ledger:    deps.Ledger,
		QueueRepo: deps.QueueRepo,
		Queue:     postQueue,
		Registry:  registry,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
		Commands: commandUseCase,
		Queries:  queryUseCase,
		Queue:    postQueue,
		Registry: registry,
		Manager:  manager,
		Ticker: workers.QueueTicker{
			Queue:  postQueue,
			Logger: deps.Logger,
		},
		Recovery: workers.CrashRecovery{
			Records:   deps.Records,
			QueueRepo: deps.QueueRepo,
			IDGen:     deps.IDGen,
			Logger:    deps.Logger,
		},
		Finished: workers.AttemptFinishedConsumer{
			Subscriber: deps.Subscriber,
			Queue:      postQueue,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine to process-local tables. Destinations are registered
// on the returned Websites registry; submissions and accounts are seeded through Catalog.
func NewInMemoryModule(logger *slog.Logger, sites ...ports.Website) Module {
	store := memory.NewStore()
	catalog := memory.NewCatalog()
	registry := websites.NewRegistry(logger, sites...)
	module := NewModule(Dependencies{
		Records:     store,
		Ledger:      store,
		QueueRepo:   store,
		Submissions: catalog,
		Accounts:    catalog,
		Websites:    registry,
		Resizer:     websites.DimensionResizer{},
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	module.Catalog = catalog
	module.Websites = registry
	return module
}
