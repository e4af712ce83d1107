// Package config resolves process configuration from flags with environment fallbacks.
package config

import (
	"flag"
	"fmt"
	"strconv"
	"time"
)

type Relay struct {
	Addr  string
	Room  string
	MDNS  bool
	Debug bool
}

type Client struct {
	Relay    string
	Room     string
	Discover bool
	Debug    bool
	// Gestures is how many synthetic gestures the client draws; zero draws forever.
	Gestures int
	Every    time.Duration
}

// LoadRelay parses relay flags. getenv supplies the defaults (os.Getenv in main).
func LoadRelay(args []string, getenv func(string) string) (Relay, error) {
	var c Relay
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.StringVar(&c.Addr, "addr", env(getenv, "WB_ADDR", "localhost:8080"), "the address to listen on")
	fs.StringVar(&c.Room, "room", env(getenv, "WB_ROOM", "default"), "the room this relay serves")
	fs.BoolVar(&c.MDNS, "mdns", envBool(getenv, "WB_MDNS", false), "advertise the relay over mDNS")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return Relay{}, err
	}
	if c.Room == "" {
		return Relay{}, fmt.Errorf("room must not be empty")
	}
	return c, nil
}

// LoadClient parses client flags. getenv supplies the defaults (os.Getenv in main).
func LoadClient(args []string, getenv func(string) string) (Client, error) {
	var c Client
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&c.Relay, "addr", env(getenv, "WB_RELAY", "127.0.0.1:8080"), "the relay address to connect to")
	fs.StringVar(&c.Room, "room", env(getenv, "WB_ROOM", "default"), "the room to join")
	fs.BoolVar(&c.Discover, "discover", envBool(getenv, "WB_MDNS", false), "find the relay over mDNS instead of -addr")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug logging")
	fs.IntVar(&c.Gestures, "gestures", 0, "number of gestures to draw before exiting, 0 for no limit")
	fs.DurationVar(&c.Every, "every", 2*time.Second, "pause between gestures")
	if err := fs.Parse(args); err != nil {
		return Client{}, err
	}
	if c.Room == "" {
		return Client{}, fmt.Errorf("room must not be empty")
	}
	if c.Gestures < 0 {
		return Client{}, fmt.Errorf("gestures must not be negative")
	}
	if c.Every <= 0 {
		return Client{}, fmt.Errorf("every must be positive")
	}
	return c, nil
}

func env(getenv func(string) string, key, fallback string) string {
	if getenv == nil {
		return fallback
	}
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(getenv func(string) string, key string, fallback bool) bool {
	v := env(getenv, key, "")
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
