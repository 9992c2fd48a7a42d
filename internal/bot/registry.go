package bot

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/dashboard"
	"gitlab.com/yelinaung/finova-bot/internal/logger"
	"gitlab.com/yelinaung/finova-bot/internal/query"
	"gitlab.com/yelinaung/finova-bot/internal/session"
	"gitlab.com/yelinaung/finova-bot/internal/tokenstore"
)

// authConfigStaleTime keeps the public identity widget configuration longer
// than user data.
const authConfigStaleTime = 5 * time.Minute

// SlotSource hands out the durable token slot of an owner.
type SlotSource interface {
	For(owner string) tokenstore.Slot
}

// chat is one running client: its own session, cache and mutation state.
type chat struct {
	id    int64
	store *session.Store
	svc   *dashboard.Service
	nav   *chatNavigator

	start    sync.Once
	startErr error
}

// chatNavigator queues navigation requests until the current command has
// replied.
type chatNavigator struct {
	mu     sync.Mutex
	routes []session.Route
}

func (n *chatNavigator) Navigate(route session.Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *chatNavigator) drain() []session.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	routes := n.routes
	n.routes = nil
	return routes
}

type registry struct {
	client    *api.Client
	slots     SlotSource
	staleTime time.Duration

	mu    sync.Mutex
	chats map[int64]*chat
}

func newRegistry(client *api.Client, slots SlotSource, staleTime time.Duration) *registry {
	return &registry{
		client:    client,
		slots:     slots,
		staleTime: staleTime,
		chats:     make(map[int64]*chat),
	}
}

func slotOwner(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

// get returns the client of chatID, creating it on first use. The first
// caller runs the startup protocol against the chat's durable slot and gets
// its error; later callers get nil.
func (r *registry) get(ctx context.Context, chatID int64) (*chat, error) {
	r.mu.Lock()
	c, ok := r.chats[chatID]
	if !ok {
		nav := &chatNavigator{}
		store := session.New(r.client, r.slots.For(slotOwner(chatID)), nav,
			session.WithLogger(logger.Component("session").With().Str("chat", logger.HashChatID(chatID)).Logger()))
		cache := query.NewCache(r.staleTime, query.WithResourceStaleTime(query.ResourceAuthConfig, authConfigStaleTime))
		c = &chat{
			id:    chatID,
			store: store,
			svc:   dashboard.New(r.client, store, cache),
			nav:   nav,
		}
		r.chats[chatID] = c
	}
	r.mu.Unlock()

	ran := false
	c.start.Do(func() {
		ran = true
		c.startErr = c.store.Start(ctx)
	})
	if ran {
		return c, c.startErr
	}
	return c, nil
}

// Len returns the number of chats seen since startup.
func (r *registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}
