package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/rahul/crewplan/internal/agent"
	"github.com/rahul/crewplan/internal/backend"
	"github.com/rahul/crewplan/internal/crew"
	"github.com/rahul/crewplan/internal/gateway"
	"github.com/rahul/crewplan/internal/governance"
	"github.com/rahul/crewplan/internal/observability"
	"github.com/rahul/crewplan/internal/store"
	"github.com/rahul/crewplan/internal/tools"
	"github.com/rahul/crewplan/pkg/config"
)

// newModel is swapped out in tests.
var newModel = backend.NewModel

// app holds everything a command needs to run the pipeline.
type app struct {
	cfg     *config.Config
	creds   *config.Credentials
	logger  *observability.Logger
	runLog  *store.RunLog
	service *gateway.Service
}

// setup loads configuration and wires the planner. Events are written to
// events; pass io.Discard to silence them.
func setup(events io.Writer) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		return nil, fmt.Errorf("no enabled provider found in config")
	}

	a := &app{
		cfg:    cfg,
		creds:  config.NewCredentials(pCfg.ResolveAPIKey(pName)),
		logger: observability.NewLogger(events, cfg.Logging.EventsPath, cfg.Logging.MaxSizeMB),
	}

	llm, err := newModel(pName, pCfg, a.creds)
	if err != nil {
		a.close()
		return nil, err
	}

	defs, err := crew.Load(cfg.Crew.AgentsPath, cfg.Crew.TasksPath)
	if err != nil {
		a.close()
		return nil, err
	}

	policy, err := governance.FromConfig(cfg.Policy)
	if err != nil {
		a.close()
		return nil, err
	}

	opts := []agent.Option{
		agent.WithTools(newRegistry(cfg.Crew)),
		agent.WithLogger(a.logger),
		agent.WithPolicy(policy),
		agent.WithModelName(pCfg.Model),
	}

	if cfg.Crew.PromptsDir != "" {
		guidelines, err := agent.NewPromptManager(cfg.Crew.PromptsDir).GetGuidelines()
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, agent.WithGuidelines(guidelines))
	}

	switch cfg.Memory.Type {
	case "sqlite":
		a.runLog, err = store.NewRunLog(cfg.Memory.Path)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to open run log: %w", err)
		}
		opts = append(opts, agent.WithRecorder(a.runLog))
	case "", "none":
	default:
		a.close()
		return nil, fmt.Errorf("unknown memory type %q", cfg.Memory.Type)
	}

	pipeline, err := agent.New(defs, llm, opts...)
	if err != nil {
		a.close()
		return nil, err
	}

	a.service = &gateway.Service{
		Planner: pipeline,
		Policy:  policy,
		Logger:  a.logger,
		Timeout: cfg.App.RequestTimeout(),
	}
	return a, nil
}

func newRegistry(crewCfg config.CrewConfig) *tools.Registry {
	registry := tools.NewRegistry()

	searchTool, err := tools.NewSearchTool(5)
	if err != nil {
		log.Printf("Warning: Failed to initialize search tool: %v", err)
	} else {
		registry.Register(searchTool)
	}

	registry.Register(tools.NewScraperTool())
	if crewCfg.DocumentsDir != "" {
		registry.Register(tools.NewDocumentsTool(crewCfg.DocumentsDir))
	}
	return registry
}

// close drops the API credential and releases the run log.
func (a *app) close() {
	a.creds.Clear()
	if a.runLog != nil {
		if err := a.runLog.Close(); err != nil {
			log.Printf("Warning: failed to close run log: %v", err)
		}
	}
}
