package client

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/TsegabAbreham/MovieApp/internal/proto"
)

type fakePlayer struct {
	reloads chan string
}

func (p *fakePlayer) Reload(src string) {
	p.reloads <- src
}

func TestEmbedURL(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)

	got := EmbedURL("https://vidsrc.example/embed/tv?id=tt123", "2", 5, at)
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	q := u.Query()

	if q.Get("id") != "tt123" {
		t.Error("existing query params must survive")
	}
	if q.Get("season") != "2" || q.Get("episode") != "5" {
		t.Errorf("selection params = season %q episode %q", q.Get("season"), q.Get("episode"))
	}
	if q.Get("autoplay") != "1" {
		t.Error("reload source must carry an autoplay flag")
	}
	if q.Get("cb") != "1700000000000" {
		t.Errorf("cache-bust token = %q", q.Get("cb"))
	}
}

func TestEmbedURLWithoutSelection(t *testing.T) {
	got := EmbedURL("https://vidsrc.example/embed/movie", "", 0, time.UnixMilli(1))
	if strings.Contains(got, "season") || strings.Contains(got, "episode") {
		t.Errorf("movie source should carry no selectors: %s", got)
	}
	if !strings.Contains(got, "autoplay=1") {
		t.Errorf("missing autoplay flag: %s", got)
	}
}

func TestEmbedURLChangesBetweenReloads(t *testing.T) {
	a := EmbedURL("https://vidsrc.example/embed/tv", "1", 1, time.UnixMilli(1000))
	b := EmbedURL("https://vidsrc.example/embed/tv", "1", 1, time.UnixMilli(2000))
	if a == b {
		t.Error("cache-bust token should make successive sources differ")
	}
}

func TestApplyStartOverridesSelectionAndReloads(t *testing.T) {
	player := &fakePlayer{reloads: make(chan string, 1)}
	c := New(Options{
		Room:      "54321",
		EmbedBase: "https://vidsrc.example/embed/tv",
		Player:    player,
	})
	c.countdown = newCountdown(time.Millisecond, time.Now)
	c.SetSelection("1", 1)

	// An already-elapsed start fires promptly with the message's selectors
	// overriding the local selection.
	c.applyStart(proto.Start{
		Type:    proto.TypeStart,
		StartAt: time.Now().UnixMilli(),
		Season:  "2",
		Episode: 5,
	})

	select {
	case src := <-player.reloads:
		u, err := url.Parse(src)
		if err != nil {
			t.Fatalf("parse reload source: %v", err)
		}
		q := u.Query()
		if q.Get("season") != "2" || q.Get("episode") != "5" {
			t.Errorf("selectors not overridden: %s", src)
		}
		if q.Get("autoplay") != "1" {
			t.Errorf("missing autoplay flag: %s", src)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("player was not reloaded")
	}

	select {
	case src := <-player.reloads:
		t.Fatalf("player reloaded twice, second source %s", src)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestApplyStartWithoutSelectorsKeepsLocalSelection(t *testing.T) {
	player := &fakePlayer{reloads: make(chan string, 1)}
	c := New(Options{
		Room:      "54321",
		EmbedBase: "https://vidsrc.example/embed/tv",
		Player:    player,
	})
	c.countdown = newCountdown(time.Millisecond, time.Now)
	c.SetSelection("3", 7)

	c.applyStart(proto.Start{Type: proto.TypeStart, StartAt: time.Now().UnixMilli()})

	select {
	case src := <-player.reloads:
		u, _ := url.Parse(src)
		q := u.Query()
		if q.Get("season") != "3" || q.Get("episode") != "7" {
			t.Errorf("local selection lost: %s", src)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("player was not reloaded")
	}
}

func TestNewGeneratesIdentity(t *testing.T) {
	a := New(Options{Room: "r"})
	b := New(Options{Room: "r"})

	if a.ClientID() == "" {
		t.Fatal("client must have an identity")
	}
	// New connection, new identity: no session resumption.
	if a.ClientID() == b.ClientID() {
		t.Error("two clients should not share a clientId")
	}
	if a.State() != StateDisconnected {
		t.Error("new client should start disconnected")
	}
}

func TestNewRoomCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := NewRoomCode()
		if len(code) != 5 {
			t.Fatalf("room code %q should be 5 digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("room code %q should be numeric", code)
			}
		}
	}
}
