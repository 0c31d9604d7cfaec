package cli

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/qwiq"
	"github.com/roach88/qwiq/internal/logger"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/modelcue"
	"github.com/roach88/qwiq/internal/store"
)

// session is an open store with the models and client a query command
// needs.
type session struct {
	store  *store.Store
	models *modelcue.Models
	client *qwiq.Client
	log    logger.Logger
}

func (o *RootOptions) newLogger() (logger.Logger, error) {
	cfg := o.settings()
	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	return logger.NewLogger(cfg.Log.Format, level)
}

// openStore opens the configured store.
func (o *RootOptions) openStore(f *OutputFormatter) (*store.Store, error) {
	path := o.settings().Store.Path
	f.VerboseLog("Opening store %s", path)
	s, err := store.Open(path)
	if err != nil {
		return nil, f.Fail(ErrCodeStore, "open store", err)
	}
	return s, nil
}

// openSession loads the models, opens the store and builds a client.
// The caller closes the session.
func (o *RootOptions) openSession(f *OutputFormatter) (*session, error) {
	cfg := o.settings()

	models, err := modelcue.LoadDir(cfg.Models.Dir)
	if err != nil {
		return nil, f.Fail(ErrCodeModels, "load models", err)
	}
	f.VerboseLog("Loaded %d model(s) from %s", models.Len(), cfg.Models.Dir)

	log, err := o.newLogger()
	if err != nil {
		return nil, f.Fail(ErrCodeConfig, "build logger", err)
	}

	s, err := o.openStore(f)
	if err != nil {
		return nil, err
	}

	log.Debug("session opened",
		zap.String("store", cfg.Store.Path),
		zap.Strings("models", models.Names()),
		zap.Bool("day_precision", cfg.Query.DayPrecision))

	client := qwiq.New(s,
		qwiq.WithLogger(log),
		qwiq.WithDayPrecision(cfg.Query.DayPrecision))
	return &session{store: s, models: models, client: client, log: log}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// model finds a model by name.
func (s *session) model(f *OutputFormatter, name string) (*model.Descriptor[model.Record], error) {
	d, ok := s.models.Lookup(name)
	if !ok {
		err := fmt.Errorf("unknown model %q (have %s)", name, strings.Join(s.models.Names(), ", "))
		return nil, f.Fail(ErrCodeModels, "find model", err)
	}
	return d, nil
}
