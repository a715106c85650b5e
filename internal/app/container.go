package app

import (
	"context"
	"fmt"

	appconfig "github.com/doeshing/shellgate/internal/application/config"
	"github.com/doeshing/shellgate/internal/application/doctor"
	"github.com/doeshing/shellgate/internal/application/orchestrator"
	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/infrastructure/ai"
	"github.com/doeshing/shellgate/internal/infrastructure/config"
	"github.com/doeshing/shellgate/internal/infrastructure/executor"
	"github.com/doeshing/shellgate/internal/infrastructure/history"
	"github.com/doeshing/shellgate/internal/infrastructure/hostinfo"
	"github.com/doeshing/shellgate/internal/infrastructure/security"
	"github.com/doeshing/shellgate/internal/metrics"
	"github.com/doeshing/shellgate/internal/pkg/logger"
	"github.com/doeshing/shellgate/internal/ports"
)

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config        domain.Config
	ConfigLoader  *config.FileLoader
	Logger        ports.Logger
	Classifier    *security.Classifier
	Engine        *executor.Engine
	Interpreter   *ai.Interpreter
	HistoryStore  history.Store
	Targets       *config.TargetRegistry
	Metrics       *metrics.Recorder
	Orchestrator  *orchestrator.Service
	DoctorService *doctor.Service
}

// Options tunes container construction from CLI flags.
type Options struct {
	Verbose bool
	// Model overrides interpreter.default_model.
	Model string
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Model != "" {
		cfg.Interpreter.DefaultModel = opts.Model
	}
	if err := appconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgLoader.Path(), err)
	}

	log := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: opts.Verbose,
	})

	classifier, err := security.NewClassifier(security.PolicyFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("load safety rules: %w", err)
	}

	engine := executor.NewEngine(cfg.ExecutionOptions(), log)

	model, err := cfg.GetDefaultModel()
	if err != nil {
		return nil, err
	}
	provider, err := ai.NewFactory().ForModel(model)
	if err != nil {
		return nil, fmt.Errorf("interpreter %s: %w", model.Name, err)
	}
	interpreter := ai.NewInterpreter(provider, log)

	historyStore := history.Open(cfg.History.Path, log)
	if removed, err := historyStore.Prune(ctx, cfg.GetHistoryRetentionDays()); err != nil {
		log.Warn("history prune failed", map[string]interface{}{"error": err.Error()})
	} else if removed > 0 {
		log.Debug("history pruned", map[string]interface{}{"removed": removed})
	}

	targets := config.NewTargetRegistry(cfg)
	recorder := metrics.NewRecorder()

	orch := &orchestrator.Service{
		Classifier:  classifier,
		Executor:    engine,
		Interpreter: interpreter,
		History:     historyStore,
		Targets:     targets,
		Metrics:     recorder,
		Logger:      log,
		ConfirmAll:  cfg.ShouldConfirmAll(),
	}
	if err := orch.Validate(); err != nil {
		return nil, err
	}

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Classifier:     classifier,
		History:        historyStore,
		Executor:       engine,
		Host:           hostinfo.NewCollector(cfg.GetExecutionShell()),
		TargetTimeout:  cfg.GetDialTimeout(),
	}

	return &Container{
		Config:        cfg,
		ConfigLoader:  cfgLoader,
		Logger:        log,
		Classifier:    classifier,
		Engine:        engine,
		Interpreter:   interpreter,
		HistoryStore:  historyStore,
		Targets:       targets,
		Metrics:       recorder,
		Orchestrator:  orch,
		DoctorService: doctorService,
	}, nil
}

// Close releases resources held by the container.
func (c *Container) Close() error {
	if c.HistoryStore == nil {
		return nil
	}
	return c.HistoryStore.Close()
}
