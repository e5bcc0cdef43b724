// Command inspect decrypts a history store and dumps it as JSON, for
// operators debugging a deployment. It opens the store read-only in
// spirit: it never writes, aside from the blob backend's legacy
// re-encryption on load.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"havenstore/pkg/config"
	"havenstore/pkg/logger"
	"havenstore/pkg/models"
	"havenstore/pkg/security"
	"havenstore/pkg/store"
)

func main() {
	var (
		backend = flag.String("backend", "blob", "store backend: blob or pebble")
		path    = flag.String("path", "", "blob file or pebble directory")
		secret  = flag.String("secret", os.Getenv("HAVENSTORE_SECRET"), "store secret")
		room    = flag.String("room", "", "dump only this room")
		list    = flag.Bool("rooms", false, "list room keys instead of dumping")
	)
	flag.Parse()
	if *path == "" {
		fmt.Fprintln(os.Stderr, "--path required")
		os.Exit(2)
	}
	logger.InitWithLevel("warn")
	if *secret != "" {
		security.SetSecret(*secret)
	}

	cfg := &config.Config{}
	cfg.Storage.Backend = *backend
	switch *backend {
	case "blob":
		cfg.Storage.BlobPath = *path
	case "pebble":
		cfg.Storage.DBPath = *path
		// no legacy import during inspection
		cfg.Storage.BlobPath = ""
	default:
		fmt.Fprintf(os.Stderr, "unknown backend %q\n", *backend)
		os.Exit(2)
	}

	s, err := store.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = s.Close() }()

	if *list {
		rooms, err := s.Rooms()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list rooms: %v\n", err)
			os.Exit(1)
		}
		for _, r := range rooms {
			fmt.Println(r)
		}
		return
	}

	out := models.RoomMap{}
	if *room != "" {
		msgs, err := s.Get(*room)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read room %s: %v\n", *room, err)
			os.Exit(1)
		}
		out[*room] = msgs
	} else {
		rooms, err := s.Rooms()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list rooms: %v\n", err)
			os.Exit(1)
		}
		for _, r := range rooms {
			msgs, err := s.Get(r)
			if err != nil {
				fmt.Fprintf(os.Stderr, "read room %s: %v\n", r, err)
				os.Exit(1)
			}
			out[r] = msgs
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}
