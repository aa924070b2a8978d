// Package app wires the client components together.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/existflow/taskcore/internal/api"
	"github.com/existflow/taskcore/internal/board"
	"github.com/existflow/taskcore/internal/broadcast"
	"github.com/existflow/taskcore/internal/config"
	"github.com/existflow/taskcore/internal/db"
	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/push"
	"github.com/existflow/taskcore/internal/reconcile"
	"github.com/existflow/taskcore/internal/repository"
	"github.com/existflow/taskcore/internal/session"
)

// Options overrides pieces of the default wiring, mostly for tests
type Options struct {
	Logger     *logger.Logger
	HTTPClient *http.Client
	Transport  push.Transport
	Clock      push.Clock
	Persister  session.Persister
	MockDelay  *time.Duration // nil keeps the default
}

// App owns one instance of every component for the process lifetime
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	API     *api.Client // nil in mock mode
	Session *session.Store
	Channel *push.Channel
	Repo    repository.Repository
	Board   *board.Board
	Inbox   *reconcile.Reconciler
	Lists   *db.DB
	Broker  *push.MemoryBroker // set in mock mode

	live    atomic.Bool
	handles []func()
}

// New builds the component graph described by cfg
func New(cfg *config.Config, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	a := &App{Config: cfg, Log: log}

	lists, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	a.Lists = lists

	persister := opts.Persister
	if persister == nil {
		persister = session.NewFilePersister(cfg.SessionPath())
	}

	var transport push.Transport
	if cfg.Mock {
		auth := session.NewMockAuthenticator(cfg.MockUserID)
		if opts.MockDelay != nil {
			auth.Delay = *opts.MockDelay
		}
		a.Session = session.NewStore(auth, persister, log)
		mem := repository.NewMemory(a.Session)
		a.Repo = mem
		a.Broker = push.NewMemoryBroker()
		transport = a.Broker
		a.track(mem.Subscribe(a.feedBroker), func(h broadcast.Handle) { mem.Unsubscribe(h) })
		seedDemo(mem, cfg.MockUserID)
	} else {
		clientOpts := []api.Option{
			api.WithLogger(log.Named("api")),
			api.WithTokenSource(api.TokenFunc(func() string { return a.Session.Token() })),
			api.WithUnauthorizedHandler(a.forceLogout),
		}
		if opts.HTTPClient != nil {
			clientOpts = append(clientOpts, api.WithHTTPClient(opts.HTTPClient))
		} else {
			clientOpts = append(clientOpts, api.WithTimeout(cfg.RequestTimeout))
		}
		a.API = api.NewClient(cfg.APIURL, clientOpts...)
		a.Session = session.NewStore(a.API, persister, log)
		a.Repo = repository.NewHTTP(a.API)

		pushURL, err := cfg.PushURL()
		if err != nil {
			_ = lists.Close()
			return nil, err
		}
		transport = push.NewSTOMPTransport(pushURL, log)
	}
	if opts.Transport != nil {
		transport = opts.Transport
	}

	chOpts := []push.Option{
		push.WithLogger(log),
		push.WithRetryPolicy(push.RetryPolicy{Delay: cfg.ReconnectDelay, Jitter: cfg.ReconnectJitter}),
	}
	if opts.Clock != nil {
		chOpts = append(chOpts, push.WithClock(opts.Clock))
	}
	a.Channel = push.NewChannel(transport, chOpts...)

	a.Board = board.New(a.Repo, lists, a.Session, log)
	a.Inbox = reconcile.New(a.Session, a.Board, log)

	a.track(a.Channel.Subscribe(a.Inbox.HandleEvent), func(h broadcast.Handle) { a.Channel.Unsubscribe(h) })
	a.track(a.Session.OnChange(a.onSessionChange), func(h broadcast.Handle) { a.Session.Unsubscribe(h) })

	return a, nil
}

func (a *App) track(h broadcast.Handle, remove func(broadcast.Handle)) {
	a.handles = append(a.handles, func() { remove(h) })
}

// Start connects the push channel for the current session and runs the
// initial load and seeding pass. Later session changes re-point the
// channel automatically.
func (a *App) Start(ctx context.Context) error {
	a.live.Store(true)
	sess := a.Session.Current()
	a.Channel.SetSession(sess)
	if sess == nil {
		return nil
	}
	return a.Inbox.Sync(ctx)
}

// Login authenticates and, once started, loads the new user's tasks
func (a *App) Login(ctx context.Context, username, password string) (*model.Session, error) {
	sess, err := a.Session.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if a.live.Load() {
		if err := a.Inbox.Sync(ctx); err != nil {
			a.Log.Warn("initial load failed", logger.F("error", err))
		}
	}
	return sess, nil
}

// Logout ends the session
func (a *App) Logout() {
	a.Session.Logout()
}

// RequireSession returns the active session or ErrNoSession
func (a *App) RequireSession() (*model.Session, error) {
	sess := a.Session.Current()
	if sess == nil {
		return nil, model.ErrNoSession
	}
	return sess, nil
}

// Users lists assignable users. Mock mode knows only the current user.
func (a *App) Users(ctx context.Context) ([]model.User, error) {
	if a.API != nil {
		return a.API.ListUsers(ctx)
	}
	sess, err := a.RequireSession()
	if err != nil {
		return nil, err
	}
	return []model.User{{ID: sess.UserID, Username: sess.Username}}, nil
}

func (a *App) onSessionChange(sess *model.Session) {
	a.Inbox.Reset()
	a.Board.Reset()
	if a.live.Load() {
		a.Channel.SetSession(sess)
	}
}

func (a *App) forceLogout() {
	if !a.Session.IsAuthenticated() {
		return
	}
	a.Log.Warn("token rejected by server, logging out")
	a.Session.Logout()
}

// feedBroker publishes mock repository changes the way the server would
func (a *App) feedBroker(c repository.Change) {
	var deliveries []model.Delivery
	switch c.Kind {
	case repository.Created:
		deliveries = model.FanOutCreated(*c.Task)
	case repository.Updated:
		prev := *c.Task
		if c.Previous != nil {
			prev = *c.Previous
		}
		deliveries = model.FanOutUpdated(prev, *c.Task)
	case repository.Deleted:
		if c.Previous != nil {
			deliveries = model.FanOutDeleted(*c.Previous)
		}
	}
	for _, d := range deliveries {
		if err := a.Broker.Publish(d.UserID, d.Event); err != nil {
			a.Log.Warn("mock publish failed", logger.F("error", err))
		}
	}
}

// Close releases every resource
func (a *App) Close() error {
	a.Channel.Disconnect()
	for _, remove := range a.handles {
		remove()
	}
	a.Board.Close()
	if err := a.Lists.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
