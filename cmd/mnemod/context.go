package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"mnemo/internal/cognitive"
	"mnemo/internal/config"
	"mnemo/internal/jobqueue"
	"mnemo/internal/logging"
	"mnemo/internal/profilestore"
	"mnemo/internal/vectorstore"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// stores bundles the persistent layers a command may need. Close releases
// the profile database.
type stores struct {
	queue    *jobqueue.Store
	vectors  *vectorstore.Store
	profiles *profilestore.Store
}

func (s *stores) Close() {
	if s.profiles != nil {
		s.profiles.Close()
	}
}

func (c *commandContext) openStores(logger *slog.Logger) (*config.Config, *stores, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	queue, err := jobqueue.Open(cfg.QueueDir(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open queue: %w", err)
	}
	vectors, err := vectorstore.Open(cfg.VectorDir(), vectorstore.NewHashEmbedder(128), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open vector store: %w", err)
	}
	profiles, err := profilestore.Open(cfg.ProfileDBPath(), cfg.Cognitive.RevisionKeep)
	if err != nil {
		return nil, nil, fmt.Errorf("open profile store: %w", err)
	}
	return cfg, &stores{queue: queue, vectors: vectors, profiles: profiles}, nil
}

func (c *commandContext) openService() (*cognitive.Service, *stores, error) {
	cfg, st, err := c.openStores(logging.NewNop())
	if err != nil {
		return nil, nil, err
	}
	svc, err := cognitive.New(cognitive.Options{
		Enabled: cfg.Cognitive.Enabled,
		TopK:    cfg.Cognitive.TopK,
	}, st.queue, st.vectors, st.profiles, logging.NewNop())
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return svc, st, nil
}
