package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	appErrors "github.com/unclebandit/remarketing-console/internal/errors"
	"github.com/unclebandit/remarketing-console/internal/model"
)

// Console is one operator's remarketing screen: a wizard and a history view
// bound to the same bot.
type Console struct {
	ID      uuid.UUID
	Wizard  *Wizard
	History *HistoryManager

	lastSeen atomic.Int64 // unix nanoseconds
}

func (c *Console) touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

// LastSeen is the last time the console was opened or looked up.
func (c *Console) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// SelectBot discards the draft and restarts history at page 1.
func (c *Console) SelectBot(ctx context.Context, botID string) error {
	c.Wizard.SwitchBot(botID)
	return c.History.SelectBot(ctx, botID)
}

// Reuse seeds the wizard from a record on the current history page.
func (c *Console) Reuse(recordID string, mode ReuseMode) error {
	record, ok := c.History.Find(recordID)
	if !ok {
		return appErrors.NewCampaignNotFound(recordID)
	}
	return c.Wizard.Seed(record, mode)
}

// ConsoleRegistry keeps the open consoles of the process. Consoles not used
// for IdleTTL are closed by Sweep; a zero IdleTTL keeps them until Close.
type ConsoleRegistry struct {
	Dispatcher Dispatcher
	Catalog    PlanCatalog
	Store      HistoryStore
	IdleTTL    time.Duration
	Now        func() time.Time

	mu       sync.RWMutex
	consoles map[uuid.UUID]*Console
}

func NewConsoleRegistry(dispatcher Dispatcher, catalog PlanCatalog, store HistoryStore) *ConsoleRegistry {
	return &ConsoleRegistry{
		Dispatcher: dispatcher,
		Catalog:    catalog,
		Store:      store,
		consoles:   make(map[uuid.UUID]*Console),
	}
}

func (r *ConsoleRegistry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Open creates a console for botID and loads the first history page. A
// failed history load does not prevent the console from opening.
func (r *ConsoleRegistry) Open(ctx context.Context, botID string) *Console {
	history := NewHistoryManager(r.Store, botID)
	c := &Console{
		ID:      uuid.New(),
		Wizard:  NewWizard(botID, r.Dispatcher, r.Catalog, history),
		History: history,
	}
	c.touch(r.now())

	r.mu.Lock()
	r.consoles[c.ID] = c
	r.mu.Unlock()

	if err := history.GoToPage(ctx, 1); err != nil {
		log.Warn().Err(err).Str("console_id", c.ID.String()).Msg("Console opened without history")
	}
	return c
}

func (r *ConsoleRegistry) Get(id uuid.UUID) (*Console, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.consoles[id]
	if ok {
		c.touch(r.now())
	}
	return c, ok
}

// Close drops the console. Its draft is discarded.
func (r *ConsoleRegistry) Close(id uuid.UUID) {
	r.mu.Lock()
	c, ok := r.consoles[id]
	delete(r.consoles, id)
	r.mu.Unlock()

	if ok {
		c.Wizard.Discard()
	}
}

// Sweep closes every console idle for longer than IdleTTL and returns how
// many were closed.
func (r *ConsoleRegistry) Sweep() int {
	if r.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.IdleTTL)

	var idle []*Console
	r.mu.Lock()
	for id, c := range r.consoles {
		if c.LastSeen().Before(cutoff) {
			idle = append(idle, c)
			delete(r.consoles, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Wizard.Discard()
		log.Info().Str("console_id", c.ID.String()).Msg("Idle console closed")
	}
	return len(idle)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *ConsoleRegistry) StartSweeper(ctx context.Context, interval time.Duration) {
	if r.IdleTTL <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// Targets is exposed for the audience screen.
func (r *ConsoleRegistry) Targets() []model.Target {
	return Targets()
}
