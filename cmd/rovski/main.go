package main

import (
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/rovski/rovski/internal/config"
	"github.com/rovski/rovski/internal/renderer"
	"github.com/rovski/rovski/internal/window"
)

func init() {
	// SDL and the render loop must stay on the main thread.
	runtime.LockOSThread()
}

func run(cfg config.Configuration) error {
	win, err := window.New(window.Options{
		Title:     cfg.Window.Title,
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		Resizable: true,
	})
	if err != nil {
		return err
	}
	defer win.Destroy()

	r, err := renderer.New(win, cfg)
	if err != nil {
		return err
	}
	defer r.Destroy()

	return r.Run()
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	if err := run(cfg); err != nil {
		log.Errorf("%+v\n", err)
		os.Exit(1)
	}
}
