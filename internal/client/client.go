package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TsegabAbreham/MovieApp/internal/proto"
)

// State is the connection state of a room client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateJoined
)

// Player is the embedded video player the client drives. Reload replaces
// the player source; the client calls it exactly once per scheduled start.
type Player interface {
	Reload(src string)
}

// Handlers receive relay events. All callbacks are optional and are
// invoked from the client's read goroutine.
type Handlers struct {
	OnHost          func(isHost bool)
	OnPresence      func(participants []proto.Participant, hostID string)
	OnUserJoined    func(clientID, username string)
	OnUserLeft      func(clientID string)
	OnStart         func(f proto.Start)
	OnControl       func(frameType string, raw json.RawMessage)
	OnCountdownTick func(remaining time.Duration)
	OnDisconnect    func(err error)
}

// Options configures a room client.
type Options struct {
	// URL is the relay's WebSocket endpoint, e.g. ws://host:8080/ws.
	URL  string
	Room string
	// ClientID identifies this membership for the lifetime of one
	// connection; a fresh one is generated when empty. Reconnecting means
	// a fresh join with a new identity, never session resumption.
	ClientID string
	Username string
	// EmbedBase is the player embed URL the reload source is derived from.
	EmbedBase string
	Player    Player
	Handlers  Handlers
	Logger    *zerolog.Logger
}

// Client joins one room on the relay, tracks presence and host role, and
// turns start messages into a countdown-then-reload of the local player.
type Client struct {
	opts      Options
	countdown *Countdown
	now       func() time.Time
	log       *zerolog.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu           sync.Mutex
	state        State
	isHost       bool
	hostID       string
	participants []proto.Participant
	season       string
	episode      int
}

// New constructs a client. It does not connect.
func New(opts Options) *Client {
	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	if opts.Username == "" {
		opts.Username = "Guest"
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		opts:      opts,
		countdown: NewCountdown(),
		now:       time.Now,
		log:       logger,
	}
}

// ClientID returns the identity this client joins with.
func (c *Client) ClientID() string { return c.opts.ClientID }

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsHost reports whether the relay last told this client it is host.
func (c *Client) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHost
}

// Presence returns the last observed membership snapshot and host.
func (c *Client) Presence() ([]proto.Participant, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]proto.Participant(nil), c.participants...), c.hostID
}

// SetSelection records the locally selected season/episode used when the
// player reloads. A start message carrying selectors overrides it.
func (c *Client) SetSelection(season string, episode int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.season = season
	c.episode = episode
}

// Connect dials the relay and sends the join request. Run must be called
// afterwards to process relay frames.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	conn, _, err := websocket.Dial(ctx, c.opts.URL, nil)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("dial relay: %w", err)
	}
	c.conn = conn

	if err := c.send(ctx, proto.Join{
		Type:     proto.TypeJoin,
		Room:     c.opts.Room,
		ClientID: c.opts.ClientID,
		Username: c.opts.Username,
	}); err != nil {
		conn.Close(websocket.StatusInternalError, "join failed")
		c.setState(StateDisconnected)
		return fmt.Errorf("send join: %w", err)
	}

	c.setState(StateJoined)
	return nil
}

// Run reads relay frames until the connection closes or ctx is done. On
// return the client is Disconnected; any countdown in flight is lost and a
// fresh Connect issues a new join.
func (c *Client) Run(ctx context.Context) error {
	var runErr error
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			runErr = err
			break
		}
		c.handleFrame(data)
	}

	c.countdown.Cancel()
	c.mu.Lock()
	c.state = StateDisconnected
	c.isHost = false
	c.hostID = ""
	c.participants = nil
	c.mu.Unlock()

	if c.opts.Handlers.OnDisconnect != nil {
		c.opts.Handlers.OnDisconnect(runErr)
	}
	return runErr
}

// Close closes the connection. Run returns shortly after.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close(websocket.StatusNormalClosure, "leaving")
}

// Start schedules a synchronized start countdown seconds from now and
// announces it to the room. The relay does not echo a sender's own frames,
// so the same local path used for received starts runs immediately.
func (c *Client) Start(ctx context.Context, countdown time.Duration, season string, episode int) error {
	f := proto.Start{
		Type:    proto.TypeStart,
		StartAt: c.now().Add(countdown).UnixMilli(),
		Season:  season,
		Episode: episode,
	}
	if err := c.send(ctx, f); err != nil {
		return fmt.Errorf("send start: %w", err)
	}
	c.applyStart(f)
	return nil
}

// Play, Pause, and TriggerReload relay bare transport commands.
func (c *Client) Play(ctx context.Context) error  { return c.sendControl(ctx, proto.TypePlay) }
func (c *Client) Pause(ctx context.Context) error { return c.sendControl(ctx, proto.TypePause) }
func (c *Client) TriggerReload(ctx context.Context) error {
	return c.sendControl(ctx, proto.TypeReload)
}

// Seek relays a playback position in seconds.
func (c *Client) Seek(ctx context.Context, seconds float64) error {
	return c.send(ctx, proto.Seek{Type: proto.TypeSeek, Time: seconds})
}

// RequestPresence asks the relay for a fresh membership snapshot.
func (c *Client) RequestPresence(ctx context.Context) error {
	return c.send(ctx, proto.PresenceGet{
		Type:     proto.TypePresenceGet,
		Room:     c.opts.Room,
		ClientID: c.opts.ClientID,
	})
}

// Leave removes this client from the room without closing the connection.
func (c *Client) Leave(ctx context.Context) error {
	return c.send(ctx, map[string]string{"type": proto.TypeLeave})
}

func (c *Client) sendControl(ctx context.Context, frameType string) error {
	return c.send(ctx, proto.Control{Type: frameType})
}

func (c *Client) send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) handleFrame(raw []byte) {
	typ, ok := proto.Peek(raw)
	if !ok {
		c.log.Debug().Msg("malformed relay frame dropped")
		return
	}

	switch typ {
	case proto.TypeHost:
		var f proto.Host
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		c.mu.Lock()
		c.isHost = f.IsHost
		c.mu.Unlock()
		if c.opts.Handlers.OnHost != nil {
			c.opts.Handlers.OnHost(f.IsHost)
		}

	case proto.TypePresence:
		var f proto.Presence
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		hostID := ""
		if f.HostID != nil {
			hostID = *f.HostID
		}
		c.mu.Lock()
		c.participants = f.Participants
		c.hostID = hostID
		c.mu.Unlock()
		if c.opts.Handlers.OnPresence != nil {
			c.opts.Handlers.OnPresence(f.Participants, hostID)
		}

	case proto.TypeUserJoined:
		var f proto.UserJoined
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		if c.opts.Handlers.OnUserJoined != nil {
			c.opts.Handlers.OnUserJoined(f.ClientID, f.Username)
		}

	case proto.TypeUserLeft:
		var f proto.UserLeft
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		if c.opts.Handlers.OnUserLeft != nil {
			c.opts.Handlers.OnUserLeft(f.ClientID)
		}

	case proto.TypeStart:
		var f proto.Start
		if json.Unmarshal(raw, &f) != nil {
			return
		}
		c.applyStart(f)

	default:
		if c.opts.Handlers.OnControl != nil {
			c.opts.Handlers.OnControl(typ, raw)
		}
	}
}

// applyStart is the single path for scheduled starts, whether locally
// originated or received from the relay. Selectors on the message override
// the local selection before the reload source is computed.
func (c *Client) applyStart(f proto.Start) {
	c.mu.Lock()
	if f.Season != "" {
		c.season = f.Season
	}
	if f.Episode > 0 {
		c.episode = f.Episode
	}
	c.mu.Unlock()

	if c.opts.Handlers.OnStart != nil {
		c.opts.Handlers.OnStart(f)
	}

	c.countdown.Schedule(time.UnixMilli(f.StartAt), c.opts.Handlers.OnCountdownTick, c.reloadPlayer)
}

func (c *Client) reloadPlayer() {
	c.mu.Lock()
	season, episode := c.season, c.episode
	c.mu.Unlock()

	if c.opts.Player == nil {
		return
	}
	c.opts.Player.Reload(EmbedURL(c.opts.EmbedBase, season, episode, c.now()))
}

// EmbedURL builds a fresh player source carrying the selection, an
// autoplay flag, and a cache-busting token.
func EmbedURL(base, season string, episode int, at time.Time) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if season != "" {
		q.Set("season", season)
	}
	if episode > 0 {
		q.Set("episode", strconv.Itoa(episode))
	}
	q.Set("autoplay", "1")
	q.Set("cb", strconv.FormatInt(at.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// NewRoomCode returns a short numeric room code. Codes are shared
// out-of-band; the relay does not validate uniqueness.
func NewRoomCode() string {
	return strconv.Itoa(10000 + rand.Intn(90000))
}
