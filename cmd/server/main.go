package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-sequence/internal/canvas"
	"image-sequence/internal/fetch"
	"image-sequence/internal/manifest"
	"image-sequence/internal/mqttbridge"
	"image-sequence/internal/platform/config"
	"image-sequence/internal/platform/logger"
	"image-sequence/internal/platform/metrics"
	"image-sequence/internal/scroll"
	"image-sequence/internal/sequence"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	manifestPath := config.GetEnv("FRAMES_MANIFEST", "frames.yaml")
	framesRoot := config.GetEnv("FRAMES_ROOT", "")
	concurrency := config.GetEnvInt("MAX_CONCURRENT_LOADS", 8)
	fetchTimeout := config.GetEnvDuration("FETCH_TIMEOUT", 0)
	width := config.GetEnvFloat("VIEWPORT_WIDTH", 1280)
	height := config.GetEnvFloat("VIEWPORT_HEIGHT", 720)
	contentHeight := config.GetEnvFloat("CONTENT_HEIGHT", height*5)
	background := config.GetEnv("CANVAS_BACKGROUND", "#000000")
	scrollMode := config.GetEnv("SCROLL_MODE", "native")
	smoothDuration := config.GetEnvDuration("SMOOTH_DURATION", scroll.DefaultDuration)
	tickInterval := config.GetEnvDuration("TICK_INTERVAL", sequence.DefaultTickInterval)
	mqttURL := config.GetEnv("MQTT_URL", "")
	mqttPrefix := config.GetEnv("MQTT_TOPIC_PREFIX", "image-sequence")
	mqttScrollTopic := config.GetEnv("MQTT_SCROLL_TOPIC", "")

	log := logger.New(logLevel, logFormat)

	m, err := manifest.Load(manifestPath)
	if err != nil {
		log.Error("load manifest", "path", manifestPath, "error", err)
		os.Exit(1)
	}
	frames, err := m.Locators()
	if err != nil {
		log.Error("manifest locators", "path", manifestPath, "error", err)
		os.Exit(1)
	}

	viewport, err := canvas.NewViewport(width, height, contentHeight)
	if err != nil {
		log.Error("viewport", "error", err)
		os.Exit(1)
	}
	surface, err := canvas.New(int(width), int(height), canvas.Options{Background: background})
	if err != nil {
		log.Error("canvas", "error", err)
		os.Exit(1)
	}
	// Registered before the engine subscribes so the surface is resized
	// before the engine redraws into it.
	viewport.OnResize(func() {
		w, h := viewport.Size()
		if err := surface.Resize(int(w), int(h)); err != nil {
			log.Error("resize canvas", "error", err)
		}
	})

	met := metrics.New()
	met.SetFramesTotal(len(frames))

	cfg := sequence.Config{
		Frames:       frames,
		Fetcher:      fetch.NewRouter(&http.Client{Timeout: fetchTimeout}, framesRoot),
		Drawer:       surface,
		Viewport:     viewport,
		TickInterval: tickInterval,
		Logger:       log,
		Recorder:     met,
		Concurrency:  concurrency,
	}
	var input sequence.Scroller
	switch scrollMode {
	case "smooth":
		smooth := scroll.NewSmooth(scroll.SmoothOptions{Duration: smoothDuration})
		cfg.SmoothScroll = smooth
		input = smooth
	default:
		native := scroll.NewNative()
		cfg.Scroll = native
		input = native
	}

	engine, err := sequence.New(cfg)
	if err != nil {
		log.Error("create engine", "error", err)
		os.Exit(1)
	}
	log = log.With(slog.String("engine_id", engine.ID()))

	var client mqtt.Client
	if mqttURL != "" {
		client = mqtt.NewClient(mqtt.NewClientOptions().
			AddBroker(mqttURL).
			SetClientID("image-sequence-" + engine.ID()).
			SetKeepAlive(30 * time.Second).
			SetPingTimeout(5 * time.Second).
			SetAutoReconnect(true))
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Error("mqtt connect", "url", mqttURL, "error", token.Error())
			os.Exit(1)
		}
		bridge := mqttbridge.New(client, mqttPrefix, engine.ID(), log)
		engine.Subscribe(bridge.Publish)
		if mqttScrollTopic != "" {
			if _, err := mqttbridge.SubscribeScroll(client, mqttScrollTopic, input.ScrollTo, log); err != nil {
				log.Error("mqtt subscribe", "topic", mqttScrollTopic, "error", err)
				os.Exit(1)
			}
		}
		log.Info("mqtt bridge connected", "url", mqttURL, "prefix", mqttPrefix)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if err := engine.Start(ctx); err != nil {
		log.Error("start engine", "error", err)
		os.Exit(1)
	}

	h := sequence.NewHandler(engine, input, viewport, surface, log, met)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Handle("/metrics", met.Handler(func() { met.SetFramesReady(engine.LoadingProgress().Loaded) }))
	r.Get("/progress", h.GetProgress)
	r.Get("/state", h.GetState)
	r.Get("/frame.png", h.GetFrame)
	r.Post("/scroll", h.Scroll)
	r.Put("/viewport", h.PutViewport)
	r.Post("/frames/{index}/reload", h.ReloadFrame)

	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"frames", len(frames),
		"scroll_mode", scrollMode,
		"max_concurrent_loads", concurrency,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	engine.Destroy()
	if client != nil {
		client.Disconnect(250)
	}

	log.Info("server stopped")
}
