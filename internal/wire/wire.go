// Package wire provides dependency injection for the bidsfix commands.
// A Container builds each dependency lazily, once, for one dataset.
package wire

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	cliadapter "github.com/example/bidsfix/internal/adapters/cli"
	"github.com/example/bidsfix/internal/adapters/filesystem"
	"github.com/example/bidsfix/internal/adapters/sqlite"
	"github.com/example/bidsfix/internal/app"
	"github.com/example/bidsfix/internal/config"
	"github.com/example/bidsfix/internal/core/pairing"
	"github.com/example/bidsfix/internal/db"
	"github.com/example/bidsfix/internal/ports/primary"
	"github.com/example/bidsfix/internal/ports/secondary"
)

// Options configures a Container.
type Options struct {
	Root   string         // dataset root
	Config *config.Config // defaults when nil
	Logger *zap.Logger    // no-op when nil
}

// Container holds the services of one command invocation.
type Container struct {
	opts Options

	once     sync.Once
	initErr  error
	conv     pairing.Conventions
	layout   *filesystem.Layout
	store    *filesystem.SidecarStore
	executor *app.DefaultEffectExecutor

	indexOnce sync.Once
	indexErr  error
	index     secondary.DatasetIndex

	dbMu sync.Mutex
	dbs  []*sql.DB
}

// New creates a container for the dataset in opts.
func New(opts Options) *Container {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Container{opts: opts}
}

// initServices initializes the shared dependencies.
// This is called once via sync.Once.
func (c *Container) initServices() {
	c.conv, c.initErr = c.opts.Config.Conventions()
	if c.initErr != nil {
		c.initErr = fmt.Errorf("invalid configuration: %w", c.initErr)
		return
	}

	c.layout, c.initErr = filesystem.NewLayout(c.opts.Root)
	if c.initErr != nil {
		return
	}

	c.store = filesystem.NewSidecarStore()
	c.executor = app.NewEffectExecutor(c.store, c.opts.Logger)
}

func (c *Container) ready() error {
	c.once.Do(c.initServices)
	return c.initErr
}

// datasetIndex returns the sqlite index when one is configured and the
// directory walk otherwise.
func (c *Container) datasetIndex() (secondary.DatasetIndex, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.indexOnce.Do(func() {
		if c.opts.Config.IndexDB == "" {
			c.index = c.layout
			return
		}

		database, err := c.openDB(c.opts.Config.IndexDB)
		if err != nil {
			c.indexErr = err
			return
		}
		repo := sqlite.NewIndexRepository(database)
		c.index = repo

		if meta, err := repo.Meta(context.Background()); err != nil {
			c.indexErr = fmt.Errorf("index %s is not usable: %w", c.opts.Config.IndexDB, err)
		} else if meta.Root != c.layout.Root() {
			c.indexErr = fmt.Errorf("index %s was built for %s, not %s", c.opts.Config.IndexDB, meta.Root, c.layout.Root())
		}
	})
	return c.index, c.indexErr
}

func (c *Container) openDB(path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}
	c.dbMu.Lock()
	c.dbs = append(c.dbs, database)
	c.dbMu.Unlock()
	return database, nil
}

// Close releases the databases opened by the container.
func (c *Container) Close() error {
	c.dbMu.Lock()
	defer c.dbMu.Unlock()
	var firstErr error
	for _, database := range c.dbs {
		if err := database.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.dbs = nil
	return firstErr
}

// Conventions returns the validated pairing conventions.
func (c *Container) Conventions() (pairing.Conventions, error) {
	if err := c.ready(); err != nil {
		return pairing.Conventions{}, err
	}
	return c.conv, nil
}

// AssignService returns the assignment service.
func (c *Container) AssignService() (primary.AssignService, error) {
	index, err := c.datasetIndex()
	if err != nil {
		return nil, err
	}
	return app.NewAssignService(index, c.executor, c.conv, c.opts.Logger), nil
}

// UnassignService returns the linkage removal service.
func (c *Container) UnassignService() (primary.UnassignService, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return app.NewUnassignService(c.layout.Root(), c.store, c.executor, c.conv.LinkageField, c.conv.SidecarExtension, c.opts.Logger), nil
}

// DoctorService returns the sidecar check service.
func (c *Container) DoctorService() (primary.DoctorService, error) {
	index, err := c.datasetIndex()
	if err != nil {
		return nil, err
	}
	return app.NewDoctorService(index, c.store, c.conv.LinkageField, c.conv.SidecarExtension, c.opts.Logger), nil
}

// IndexService returns a service that writes the dataset index to dbPath.
func (c *Container) IndexService(dbPath string) (primary.IndexService, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	database, err := c.openDB(dbPath)
	if err != nil {
		return nil, err
	}
	return app.NewIndexService(c.layout, sqlite.NewIndexRepository(database), c.opts.Logger), nil
}

// AssignAdapter returns an AssignAdapter writing the report to out and the
// summary to summary.
func (c *Container) AssignAdapter(out, summary io.Writer) (*cliadapter.AssignAdapter, error) {
	svc, err := c.AssignService()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewAssignAdapter(svc, out, summary), nil
}

// UnassignAdapter returns an UnassignAdapter writing to out.
func (c *Container) UnassignAdapter(out io.Writer) (*cliadapter.UnassignAdapter, error) {
	svc, err := c.UnassignService()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewUnassignAdapter(svc, out), nil
}

// DoctorAdapter returns a DoctorAdapter writing to out.
func (c *Container) DoctorAdapter(out io.Writer) (*cliadapter.DoctorAdapter, error) {
	svc, err := c.DoctorService()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewDoctorAdapter(svc, out), nil
}

// IndexAdapter returns an IndexAdapter for dbPath writing to out.
func (c *Container) IndexAdapter(dbPath string, out io.Writer) (*cliadapter.IndexAdapter, error) {
	svc, err := c.IndexService(dbPath)
	if err != nil {
		return nil, err
	}
	return cliadapter.NewIndexAdapter(svc, out), nil
}
