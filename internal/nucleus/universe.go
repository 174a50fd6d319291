package nucleus

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Universe is the process-wide container multiple Computers share: a copy
// of the host Context, a registry used to cache built-in peripherals'
// MethodTables, and the clock binding ticks are measured against.
//
// spec section 3 describes the registry as capped at NN_MAX_USERDATA
// string-keyed slots. This module implements it as a bounded LRU cache
// (github.com/hashicorp/golang-lru/v2) rather than a hard-reject map: the
// registry's only stated purpose is caching VTables for built-ins, and for a
// pure cache, evicting the least-recently-used entry is strictly safer than
// refusing the (N+1)th registration outright. See DESIGN.md.
type Universe struct {
	Context Context

	mu       sync.Mutex
	clock    func() float64
	userdata *lru.Cache[string, any]
	network  map[string]*Computer
	tunnels  map[string][]TunnelPeer
}

// TunnelPeer identifies one end of a linked-card tunnel channel: the
// Computer owning the endpoint and the component address to report as
// the signal's receiver.
type TunnelPeer struct {
	Address  string
	Computer *Computer
}

// NewUniverse creates a Universe from a Context.
func NewUniverse(ctx Context) *Universe {
	cache, err := lru.NewWithEvict[string, any](MaxUserData, func(key string, value any) {
		if mt, ok := value.(*MethodTable); ok {
			mt.FreeType()
		}
	})
	if err != nil {
		// Only returns an error for a non-positive size, which MaxUserData never is.
		panic(err)
	}

	return &Universe{
		Context:  ctx,
		clock:    ctx.Clock,
		userdata: cache,
		network:  make(map[string]*Computer),
		tunnels:  make(map[string][]TunnelPeer),
	}
}

// RegisterNetworkAddress makes computer reachable under address by a modem
// or tunnel component elsewhere in the universe, per spec section 5's note
// that shared peripherals (screens, modems, disks) are the only channel
// through which independently-ticking Computers interact.
func (u *Universe) RegisterNetworkAddress(address string, computer *Computer) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.network[address] = computer
}

// UnregisterNetworkAddress removes a previously registered network address.
func (u *Universe) UnregisterNetworkAddress(address string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	delete(u.network, address)
}

// FindNetworkComputer looks up the Computer registered under address, for
// modem and tunnel message delivery.
func (u *Universe) FindNetworkComputer(address string) (*Computer, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	c, ok := u.network[address]

	return c, ok
}

// RegisterTunnelPeer joins address onto channel, so that sends on any other
// peer of the same channel reach it.
func (u *Universe) RegisterTunnelPeer(channel string, peer TunnelPeer) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.tunnels[channel] = append(u.tunnels[channel], peer)
}

// UnregisterTunnelPeer removes address from channel.
func (u *Universe) UnregisterTunnelPeer(channel, address string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	peers := u.tunnels[channel]

	for i, p := range peers {
		if p.Address == address {
			u.tunnels[channel] = append(peers[:i], peers[i+1:]...)
			return
		}
	}
}

// TunnelPeers returns a copy of every peer currently joined to channel.
func (u *Universe) TunnelPeers(channel string) []TunnelPeer {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]TunnelPeer, len(u.tunnels[channel]))
	copy(out, u.tunnels[channel])

	return out
}

// Clock returns the universe's current time in seconds.
func (u *Universe) Clock() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.clock()
}

// SetClock overrides the universe's clock binding, independent of
// Context.Clock, so hosts and tests can freeze or fast-forward time.
func (u *Universe) SetClock(fn func() float64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.clock = fn
}

// SetUserData caches a value (typically a *MethodTable) under key. If the
// registry is at capacity, the least-recently-used entry is evicted first.
func (u *Universe) SetUserData(key string, value any) {
	u.userdata.Add(key, value)
}

// GetUserData looks up a cached value by key.
func (u *Universe) GetUserData(key string) (any, bool) {
	return u.userdata.Get(key)
}

// GetOrCreateMethodTable returns the cached MethodTable for key, creating it
// with create if absent. This is the common "register once per universe"
// idiom built-in peripherals use.
func (u *Universe) GetOrCreateMethodTable(key string, create func() *MethodTable) *MethodTable {
	if v, ok := u.userdata.Get(key); ok {
		return v.(*MethodTable)
	}

	mt := create()
	u.userdata.Add(key, mt)

	return mt
}
