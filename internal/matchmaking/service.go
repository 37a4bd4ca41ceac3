package matchmaking

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

// ErrCoordinatorStopped is returned by operations submitted after the
// coordinator's loop has exited.
var ErrCoordinatorStopped = errors.New("coordinator stopped")

// Config holds the coordinator's tunables.
type Config struct {
	// SendTimeout bounds each control-channel send. Zero means no bound.
	SendTimeout time.Duration
}

type operation func(ctx context.Context)

// Coordinator is the single owner of the registry, the waiting queue and the
// pairing engine. Every operation runs on one goroutine, one at a time, and
// finishes its reads and writes of shared state before any network send is
// issued. Sends happen on separate goroutines after the decision is final.
type Coordinator struct {
	ids       *IdentityGenerator
	registry  *Registry
	queue     *WaitingQueue
	observers []Observer
	config    Config

	ops        chan operation
	stopped    chan struct{}
	deliveries *conc.WaitGroup

	matches       int64
	probesDropped int64
	pairsDropped  int64
}

// NewCoordinator creates a coordinator. Call Start before submitting operations.
func NewCoordinator(config Config, observers ...Observer) *Coordinator {
	return &Coordinator{
		ids:        NewIdentityGenerator(),
		registry:   NewRegistry(),
		queue:      NewWaitingQueue(),
		observers:  observers,
		config:     config,
		ops:        make(chan operation),
		stopped:    make(chan struct{}),
		deliveries: conc.NewWaitGroup(),
	}
}

// Start runs the coordinator loop in a separate goroutine until ctx is done.
func (c *Coordinator) Start(ctx context.Context) {
	slog.Info("Matchmaking coordinator started")
	go c.run(ctx)
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Matchmaking coordinator stopping.")
			return
		case op := <-c.ops:
			op(ctx)
		}
	}
}

// Wait blocks until the loop has exited and in-flight match deliveries
// have finished.
func (c *Coordinator) Wait() {
	<-c.stopped
	c.deliveries.Wait()
}

// do hands op to the coordinator goroutine and waits for it to finish.
func (c *Coordinator) do(ctx context.Context, op operation) error {
	done := make(chan struct{})
	wrapped := func(runCtx context.Context) {
		defer close(done)
		op(runCtx)
	}

	select {
	case c.ops <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrCoordinatorStopped
	}
	<-done
	return nil
}

// OnConnect registers a new player for stream, sends it its identity and
// returns the identity. A failed send is logged; the player stays registered
// until the transport reports the disconnect.
func (c *Coordinator) OnConnect(ctx context.Context, stream Stream) (string, error) {
	var id string
	err := c.do(ctx, func(context.Context) {
		id = c.ids.Generate(c.registry.Contains)
		c.registry.Insert(newPlayer(id, stream))
		for _, o := range c.observers {
			o.PlayerConnected(id)
		}
	})
	if err != nil {
		return "", err
	}
	slog.Info("Player registered", "playerID", id)

	if err := c.send(ctx, stream, id); err != nil {
		slog.Warn("Could not send player ID", "playerID", id, "error", err)
	}
	return id, nil
}

// OnDisconnect removes the player owning stream and purges it from the
// waiting queue. Unknown streams are ignored.
func (c *Coordinator) OnDisconnect(ctx context.Context, stream Stream) error {
	return c.do(ctx, func(context.Context) {
		p, ok := c.registry.RemoveByStream(stream)
		if !ok {
			return
		}
		purged := c.queue.Purge(p.ID)
		last := p.state
		p.state = StateDisconnected

		slog.Info("Player removed", "playerID", p.ID, "state", last.String(), "purged", purged)
		for _, o := range c.observers {
			o.PlayerDisconnected(p.ID, last)
		}
	})
}

// OnProbe records addr as the address of player id. The first accepted probe
// queues the player and runs a pairing sweep; later probes are no-ops.
func (c *Coordinator) OnProbe(ctx context.Context, id string, addr netip.AddrPort) error {
	return c.do(ctx, func(runCtx context.Context) {
		p, ok := c.registry.Get(id)
		if !ok {
			c.probesDropped++
			slog.Warn("Probe for unknown player", "playerID", id, "address", addr.String())
			for _, o := range c.observers {
				o.ProbeDropped(ErrUnknownPlayer)
			}
			return
		}

		if !c.registry.SetAddress(id, addr) {
			return
		}
		p.state = StateQueued
		c.queue.Enqueue(id)
		slog.Info("Player address recorded", "playerID", id, "address", addr.String())

		pairings, dropped := sweep(c.registry, c.queue)
		for _, d := range dropped {
			c.pairsDropped++
			for _, o := range c.observers {
				o.PairDropped(d)
			}
		}
		for _, pairing := range pairings {
			c.matches++
			c.deliver(runCtx, pairing)
		}
	})
}

// deliver snapshots the pairing and sends both match lines concurrently.
func (c *Coordinator) deliver(ctx context.Context, pairing Pairing) {
	first, second := pairing.First, pairing.Second
	firstStream, secondStream := first.stream, second.stream
	firstLine, secondLine := matchLine(1, second), matchLine(2, first)

	m := Match{
		ID:        uuid.NewString(),
		First:     MatchMember{ID: first.ID, Role: 1, Address: first.addr},
		Second:    MatchMember{ID: second.ID, Role: 2, Address: second.addr},
		MatchedAt: time.Now(),
	}
	slog.Info("Matched players", "matchID", m.ID, "first", first.ID, "second", second.ID)

	c.deliveries.Go(func() {
		var wg conc.WaitGroup
		wg.Go(func() {
			m.First.Delivered = c.sendMatch(ctx, firstStream, m.First.ID, firstLine)
		})
		wg.Go(func() {
			m.Second.Delivered = c.sendMatch(ctx, secondStream, m.Second.ID, secondLine)
		})
		wg.Wait()

		// Observers still publish a match whose sends were cut short by shutdown.
		observerCtx := context.WithoutCancel(ctx)
		for _, o := range c.observers {
			o.MatchFound(observerCtx, m)
		}
	})
}

func (c *Coordinator) sendMatch(ctx context.Context, stream Stream, playerID, line string) bool {
	if err := c.send(ctx, stream, line); err != nil {
		slog.Warn("Could not send match info", "playerID", playerID, "error", err)
		return false
	}
	return true
}

func (c *Coordinator) send(ctx context.Context, stream Stream, line string) error {
	if c.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.SendTimeout)
		defer cancel()
	}
	return stream.Send(ctx, line)
}

// Stats is a point-in-time snapshot of coordinator state.
type Stats struct {
	Registered    int   `json:"registered"`
	Connected     int   `json:"connected"`
	Queued        int   `json:"queued"`
	Paired        int   `json:"paired"`
	Discarded     int   `json:"discarded"`
	Waiting       int   `json:"waiting"`
	Matches       int64 `json:"matches"`
	ProbesDropped int64 `json:"probesDropped"`
	PairsDropped  int64 `json:"pairsDropped"`
}

// Stats returns a snapshot taken on the coordinator goroutine.
func (c *Coordinator) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.do(ctx, func(context.Context) {
		s.Registered = c.registry.Len()
		s.Waiting = c.queue.Len()
		s.Matches = c.matches
		s.ProbesDropped = c.probesDropped
		s.PairsDropped = c.pairsDropped
		c.registry.Each(func(p *Player) {
			switch p.state {
			case StateConnected:
				s.Connected++
			case StateQueued:
				s.Queued++
			case StatePaired:
				s.Paired++
			case StateDiscarded:
				s.Discarded++
			}
		})
	})
	return s, err
}

// Lookup returns a copy of the player registered under id.
func (c *Coordinator) Lookup(ctx context.Context, id string) (PlayerInfo, bool, error) {
	var (
		info  PlayerInfo
		found bool
	)
	err := c.do(ctx, func(context.Context) {
		if p, ok := c.registry.Get(id); ok {
			info, found = p.info(), true
		}
	})
	return info, found, err
}
