package cli

import (
	"log/slog"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/shopfloor-io/floorline/internal/capacity"
	"github.com/shopfloor-io/floorline/internal/config"
	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/events"
	"github.com/shopfloor-io/floorline/internal/floor"
	"github.com/shopfloor-io/floorline/internal/quantity"
	"github.com/shopfloor-io/floorline/internal/store"
	"github.com/shopfloor-io/floorline/internal/timeseg"
)

// app wires the store, ledger, bus, and workflow components for one command
// invocation. Commands open it in RunE and close it on return.
type app struct {
	cfg        config.Config
	store      *store.Store
	bus        *events.Bus
	ledger     *capacity.Ledger
	floor      *floor.Service
	reconciler *quantity.Reconciler
	clock      *timeseg.Tracker
	sink       *events.NATSSink
	log        *slog.Logger
}

// openApp loads configuration, opens the store, and wires the component
// graph: the lifecycle projector always subscribes, the NATS sink only when
// configured.
func (o *RootOptions) openApp(cmd *cobra.Command) (*app, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.Tenant != "" {
		cfg.Tenant = o.Tenant
	}
	if o.Actor != "" {
		cfg.Actor = o.Actor
	}
	if o.DBPath != "" {
		cfg.DatabasePath = o.DBPath
	}
	if o.Verbose {
		cfg.Verbose = true
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(logger)
	bus.Subscribe("lifecycle", floor.NewLifecycleProjector(s, logger))
	// Visible with --verbose; the handler filters it out otherwise.
	bus.Subscribe("audit", events.AuditSubscriber(logger))

	var sink *events.NATSSink
	if cfg.NATSURL != "" {
		sink, err = events.NewNATSSink(cfg.NATSURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		bus.Subscribe("nats", sink)
	}

	var ledgerOpts []capacity.Option
	if ttl := cfg.WIPCacheTTL.Std(); ttl > 0 {
		ledgerOpts = append(ledgerOpts, capacity.WithWIPCache(ttl, core.SystemClock{}))
	}
	ledger := capacity.NewLedger(s, ledgerOpts...)

	return &app{
		cfg:        cfg,
		store:      s,
		bus:        bus,
		ledger:     ledger,
		floor:      floor.NewService(s, ledger, bus, nil),
		reconciler: quantity.NewReconciler(s, bus, nil),
		clock:      timeseg.NewTracker(s, bus, nil),
		sink:       sink,
		log:        logger,
	}, nil
}

func (a *app) Close() {
	if a.sink != nil {
		a.sink.Close()
	}
	a.store.Close()
}

// tenantCtx builds the tenant context commands run as. The actor falls back
// to the OS username so writes are never unattributed.
func (a *app) tenantCtx() core.TenantContext {
	actor := a.cfg.Actor
	if actor == "" {
		if u, err := user.Current(); err == nil && u.Username != "" {
			actor = u.Username
		} else if host, err := os.Hostname(); err == nil {
			actor = host
		} else {
			actor = "unknown"
		}
	}
	return core.TenantContext{TenantID: a.cfg.Tenant, ActorID: actor, Role: "operator"}
}

// formatter builds the output formatter bound to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
