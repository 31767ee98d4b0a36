package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/luhtfiimanal/go-ssr"
	"github.com/luhtfiimanal/go-ssr/journal"
	"github.com/luhtfiimanal/go-ssr/registry"
	"github.com/luhtfiimanal/go-ssr/server"
)

func main() {
	defaults := ssr.DefaultOptions()

	primary := flag.String("primary", "vdb", "primary mirror: a path, or a name when -registry is set")
	secondary := flag.String("secondary", "vdc", "secondary mirror: a path, or a name when -registry is set")
	registryDSN := flag.String("registry", "", "sqlite database mapping device names to paths")
	var registrations []string
	flag.Func("register", "name=path entry to add to the registry before opening (repeatable)", func(v string) error {
		if !strings.Contains(v, "=") {
			return fmt.Errorf("want name=path, got %q", v)
		}
		registrations = append(registrations, v)
		return nil
	})

	sectorSize := flag.Int("sector-size", defaults.SectorSize, "sector size in bytes")
	capacity := flag.Int64("capacity", defaults.Capacity, "logical capacity in sectors")
	dataRegion := flag.Int64("data-region", defaults.DataRegionSize, "data region size per mirror in bytes")
	workers := flag.Int("workers", defaults.Workers, "I/O worker goroutines")
	queue := flag.Int("queue", defaults.QueueSize, "request queue capacity")
	useMmap := flag.Bool("mmap", false, "access mirrors through mmap")
	create := flag.Bool("create", false, "create missing mirror files")
	format := flag.Bool("format", false, "initialise both mirrors before serving")
	syncWrites := flag.Bool("sync", false, "fsync after every sector write")
	stateDir := flag.String("state", "", "directory for persisted geometry and device id")
	journalDir := flag.String("journal", "", "pebble directory for the integrity event journal")
	scrub := flag.Bool("scrub", false, "scrub the whole device before serving")
	addr := flag.String("addr", "127.0.0.1:8090", "http listen address")

	flag.Parse()

	opts := defaults
	opts.SectorSize = *sectorSize
	opts.Capacity = *capacity
	opts.DataRegionSize = *dataRegion
	opts.Workers = *workers
	opts.QueueSize = *queue
	opts.UseMmap = *useMmap
	opts.Create = *create
	opts.Format = *format
	opts.SyncWrites = *syncWrites
	opts.StateDir = *stateDir
	opts.Logger = log.New(os.Stderr, "ssr: ", log.LstdFlags)

	if *registryDSN != "" {
		reg, err := registry.Open(*registryDSN)
		if err != nil {
			log.Fatalf("Failed to open device registry. Why: %v", err)
		}
		defer reg.Close()
		for _, r := range registrations {
			name, path, _ := strings.Cut(r, "=")
			if err := reg.Register(name, path); err != nil {
				log.Fatalf("Failed to register %s. Why: %v", name, err)
			}
		}
		opts.Opener = registry.Opener{
			Registry: reg,
			Files:    ssr.FileOpener{Size: opts.Geometry().MirrorSize(), Create: opts.Create, UseMmap: opts.UseMmap},
		}
	}

	var events server.EventLister
	if *journalDir != "" {
		j, err := journal.Open(*journalDir)
		if err != nil {
			log.Fatalf("Failed to open journal. Why: %v", err)
		}
		defer j.Close()
		opts.Journal = j
		events = j
	}

	dev, err := ssr.Open(*primary, *secondary, opts)
	if err != nil {
		log.Fatalf("Failed to open logical device. Why: %v", err)
	}
	log.Printf("Device %s up: %d sectors of %d bytes on %s + %s", dev.ID(), dev.Capacity(), dev.SectorSize(), *primary, *secondary)

	if *scrub {
		rep, err := dev.Scrub(context.Background(), nil)
		if err != nil {
			log.Fatalf("Scrub failed. Why: %v", err)
		}
		log.Printf("Scrub: %d scanned, %d repaired, %d degraded, %d unrecoverable",
			rep.Scanned, len(rep.Repaired), len(rep.Degraded), len(rep.Unrecoverable))
	}

	s := server.NewHTTPServer(*addr, server.NewHandler(dev, events))
	go func() {
		if err := s.Run(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server run error. Why: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shut down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed. Why: %v", err)
	}
	if err := dev.Flush(); err != nil {
		log.Printf("Failed to flush mirrors. Why: %v", err)
	}
	if err := dev.Close(); err != nil {
		log.Printf("Failed to close device. Why: %v", err)
	}
}
