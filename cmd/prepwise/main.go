package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prepwise/prepwise/internal/call"
	"github.com/prepwise/prepwise/internal/config"
	"github.com/prepwise/prepwise/internal/drive"
	"github.com/prepwise/prepwise/internal/llm"
	"github.com/prepwise/prepwise/internal/resume"
	"github.com/prepwise/prepwise/internal/server"
	"github.com/prepwise/prepwise/internal/store"
	"github.com/prepwise/prepwise/internal/synthesis"
	"github.com/prepwise/prepwise/internal/voice"
)

//go:embed static/*
var staticFiles embed.FS

// archivingSink forwards session events to the websocket hub and, when an
// archiver is configured, uploads finished feedback reports to Drive.
type archivingSink struct {
	*server.Hub
	store    store.Store
	archiver *drive.Archiver
}

func (s *archivingSink) Completed(sessionID string, result call.Result) {
	s.Hub.Completed(sessionID, result)

	if s.archiver == nil || !result.Success || result.RecordID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fb, err := s.store.GetFeedback(ctx, result.RecordID)
		if err != nil {
			// Generate-intent sessions produce interview records, which
			// have no report to archive.
			if !errors.Is(err, store.ErrNotFound) {
				log.Printf("drive archive: get feedback: %v", err)
			}
			return
		}

		iv, err := s.store.GetInterview(ctx, fb.InterviewID)
		if err != nil {
			log.Printf("drive archive: get interview: %v", err)
			return
		}

		if err := s.archiver.Archive(fb.ID, fb.FormatMarkdown(&iv)); err != nil {
			log.Printf("drive archive error: %v", err)
		}
	}()
}

func main() {
	configPath := flag.String("config", "prepwise.yml", "path to config file")
	flag.Parse()

	log.Println("prepwise: starting")

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, warning := range warnings {
		log.Printf("warning: %s", warning)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}

	provider, modelName, err := llm.ParseModel(cfg.Model)
	if err != nil {
		log.Fatalf("invalid model %q: %v", cfg.Model, err)
	}
	client, err := llm.NewClient(provider, cfg.APIKeyFor(provider), modelName)
	if err != nil {
		log.Fatalf("llm client init failed: %v", err)
	}

	timeout := cfg.ParsedCallTimeout()
	interviews := synthesis.NewInterviewPipeline(client, st, timeout)
	feedback := synthesis.NewFeedbackPipeline(client, st, timeout)
	analyzer := resume.NewAnalyzer(client, timeout)

	hub := server.NewHub()
	sink := &archivingSink{Hub: hub, store: st}

	if cfg.DriveFolderID != "" && cfg.GoogleCredentialsFile != "" {
		credJSON, readErr := os.ReadFile(cfg.GoogleCredentialsFile)
		if readErr != nil {
			log.Printf("warning: drive archival disabled: %v", readErr)
		} else if archiver, archErr := drive.NewArchiver(ctx, credJSON, cfg.DriveFolderID); archErr != nil {
			log.Printf("warning: drive archival disabled: %v", archErr)
		} else {
			sink.archiver = archiver
		}
	}

	registry := call.NewRegistry()

	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("static assets init failed: %v", err)
	}

	handler, err := server.Handler(assets, server.Deps{
		Registry:   registry,
		Store:      st,
		Hub:        hub,
		Sink:       sink,
		Interviews: interviews,
		Feedback:   feedback,
		Resume:     analyzer,
		Warnings:   func() []string { return warnings },
	})
	if err != nil {
		log.Fatalf("build http handler failed: %v", err)
	}

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	var voiceSvc *voice.DeepgramService
	var localSession *call.Session
	if cfg.VoiceMode == config.VoiceDeepgram {
		voiceSvc = voice.NewDeepgramService(cfg.DeepgramAPIKey, cfg.MicSampleRates)
		localSession = registry.Create(call.Params{
			UserID:   "local",
			UserName: "there",
			Intent:   call.GenerateInterview(),
		}, voiceSvc, interviews, feedback, sink)

		if err := localSession.Start(ctx); err != nil {
			log.Printf("warning: local voice session failed, running API/UI only: %v", err)
		} else {
			go localSession.Consume(ctx, voiceSvc.Events())
		}
	}

	log.Printf("prepwise: web UI on http://127.0.0.1%s", cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("prepwise: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if localSession != nil {
		localSession.RequestDisconnect(shutdownCtx)
	}
	if voiceSvc != nil {
		_ = voiceSvc.Stop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
	if err := st.Close(shutdownCtx); err != nil {
		log.Printf("warning: store close failed: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.StoreMongo {
		return store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return store.NewSQLiteStore(cfg.DBPath)
}
