package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/govm-net/vmstore/config"
	"github.com/govm-net/vmstore/examples/counter"
	"github.com/govm-net/vmstore/logging"
	"github.com/govm-net/vmstore/runtime"
	_ "github.com/govm-net/vmstore/storage/db"
	_ "github.com/govm-net/vmstore/storage/leveldb"
	"github.com/govm-net/vmstore/vm"
)

func init() {
	if err := counter.Register(runtime.Default()); err != nil {
		panic(err)
	}
}

// session is an engine opened from the configuration, with its metrics registry
type session struct {
	*vm.Engine
	registry *prometheus.Registry
	logger   *slog.Logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Storage.Backend = backend
	}
	if dataPath != "" {
		cfg.Storage.Path = dataPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEngine() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, err
	}

	engineConfig := &vm.Config{
		MaxContractSize: cfg.VM.MaxContractSize,
		MaxCallDepth:    cfg.VM.MaxCallDepth,
		BackendType:     cfg.Storage.Backend,
		BackendParams:   cfg.Storage.BackendParams(),
		Runtime:         runtime.Default(),
		Logger:          logger,
	}
	s := &session{logger: logger}
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		engineConfig.Registerer = s.registry
	}

	logger.Debug("opening engine", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)
	s.Engine, err = vm.NewEngine(engineConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return s, nil
}

// Close reports the collected metrics and closes the engine
func (s *session) Close() error {
	if s.registry != nil {
		families, err := s.registry.Gather()
		if err != nil {
			s.logger.Warn("failed to gather metrics", "error", err)
		}
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				var value float64
				switch {
				case m.GetCounter() != nil:
					value = m.GetCounter().GetValue()
				case m.GetHistogram() != nil:
					value = float64(m.GetHistogram().GetSampleCount())
				}
				s.logger.Info("metric", "name", mf.GetName(), "labels", m.GetLabel(), "value", value)
			}
		}
	}
	return s.Engine.Close()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
