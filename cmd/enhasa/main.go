package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/workerpool"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	enconfig "github.com/enhasa/enhasa/config"
	"github.com/enhasa/enhasa/internal/connectutil"
	"github.com/enhasa/enhasa/internal/narration/callback"
	"github.com/enhasa/enhasa/internal/narration/handler"
	"github.com/enhasa/enhasa/internal/narration/orchestrator"
	"github.com/enhasa/enhasa/internal/narration/repository"
	"github.com/enhasa/enhasa/internal/narration/worker"
	"github.com/enhasa/enhasa/internal/speech/audio"
	"github.com/enhasa/enhasa/internal/speech/cache"
	"github.com/enhasa/enhasa/internal/speech/engine"
	"github.com/enhasa/enhasa/internal/speech/registry"
	"github.com/enhasa/enhasa/internal/speech/voices"
	"github.com/enhasa/enhasa/pkg/events"
	"github.com/enhasa/enhasa/pkg/narrationv1"

	// Register TTS providers via init().
	_ "github.com/enhasa/enhasa/internal/speech/backends/elevenlabs"
	_ "github.com/enhasa/enhasa/internal/speech/backends/playht"
)

func main() {
	ctx := context.Background()

	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.LoadWithOIDC[enconfig.NarrationConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	serviceOpts := []frame.Option{
		frame.WithConfig(&cfg),
		frame.WithName("enhasa-narration"),
		frame.WithRegisterServerOauth2Client(),
		frame.WithRegisterPublisher(eventRef, eventURL),
		frame.WithWorkerPoolOptions(
			workerpool.WithPoolCount(cfg.WorkerPoolCount),
			workerpool.WithSinglePoolCapacity(cfg.WorkerPoolCapacity),
		),
	}
	if cfg.ArchiveBackend == enconfig.ArchiveDatastore {
		serviceOpts = append(serviceOpts, frame.WithDatastore())
	}
	if cfg.PregenerationQueued() {
		serviceOpts = append(serviceOpts, frame.WithRegisterPublisher(cfg.PregenerateQueueName, cfg.PregenerateQueueURL))
	}

	ctx, srv := frame.NewService(serviceOpts...)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	authenticator := srv.SecurityManager().GetAuthenticator(ctx)

	pub := events.NewPublisher(srv.QueueManager(), "narration", eventRef)

	// --- Providers ---
	providers, err := registry.TTS.CreateAll(cfg.SpeechSettings(), string(engine.ElevenLabs), string(engine.PlayHT))
	if err != nil {
		log.Fatalf("creating providers: %v", err)
	}
	defer func() {
		for _, p := range providers {
			_ = p.Close()
		}
	}()

	// --- Storage ---
	bucket, err := blob.OpenBucket(ctx, cfg.AudioBucketURL)
	if err != nil {
		log.Fatalf("opening audio bucket: %v", err)
	}
	store := audio.NewStore(bucket)
	defer store.Close()

	var archive *repository.Archive
	switch cfg.ArchiveBackend {
	case enconfig.ArchiveDatastore:
		repo := repository.NewRepository(srv.DatastoreManager().GetPool(ctx, "__default__pool_name__"))
		if err := repo.Migrate(ctx); err != nil {
			log.Fatalf("migrating archive: %v", err)
		}
		archive = repository.NewArchive(repo, bucket)
	case enconfig.ArchiveSQLite:
		db, err := repository.OpenSQLite(cfg.ArchiveSQLitePath)
		if err != nil {
			log.Fatalf("opening sqlite archive: %v", err)
		}
		defer db.Close()
		repo := repository.NewRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatalf("migrating archive: %v", err)
		}
		archive = repository.NewArchive(repo, bucket)
	}

	var cacheOpts []cache.Option
	hdlrOpts := []handler.Option{
		handler.WithEmitter(pub),
		handler.WithMaxTextRunes(cfg.MaxTextRunes),
	}
	if archive != nil {
		cacheOpts = append(cacheOpts, cache.WithDurable(archive))
		hdlrOpts = append(hdlrOpts, handler.WithArchive(archive))
	}

	audioCache, err := cache.New(cfg.CacheMaxEntries, cacheOpts...)
	if err != nil {
		log.Fatalf("creating cache: %v", err)
	}

	// --- Voice catalogs ---
	catalogs := voices.NewLoader(cfg.VoiceCatalogPath)
	if err := catalogs.Load(); err != nil {
		log.Printf("warning: loading voice catalog: %v", err)
	}
	if cfg.VoiceCatalogPath != "" {
		done := make(chan struct{})
		defer close(done)
		go func() {
			if err := catalogs.WatchAndReload(done); err != nil {
				log.Printf("warning: watching voice catalog: %v", err)
			}
		}()
	}

	// --- Orchestrator ---
	orch, err := orchestrator.New(providers, audioCache, store, catalogs,
		orchestrator.WithEmitter(pub),
		orchestrator.WithDefaultProvider(cfg.DefaultTTSProvider),
		orchestrator.WithBreaker(uint32(max(cfg.BreakerFailureThreshold, 1)), cfg.BreakerResetTimeout()),
	)
	if err != nil {
		log.Fatalf("creating orchestrator: %v", err)
	}

	// --- Pregeneration ---
	pregen := &worker.Subscriber{
		Narrator:  orch,
		Events:    pub,
		Callbacks: callback.NewNotifier(cfg.CallbackConfig()),
	}
	var dispatcher worker.Dispatcher = worker.NewPoolDispatcher(pool, pregen)
	var initOpts []frame.Option
	if cfg.PregenerationQueued() {
		dispatcher = worker.NewQueueDispatcher(srv.QueueManager(), cfg.PregenerateQueueName)
		initOpts = append(initOpts, frame.WithRegisterSubscriber(cfg.PregenerateQueueName+".worker", cfg.PregenerateQueueURL, pregen))
	}

	// --- HTTP Mux ---
	hdlrOpts = append(hdlrOpts, handler.WithDispatcher(dispatcher), handler.WithCache(audioCache))
	narrationHdlr := handler.NewNarrationHandler(orch, catalogs, hdlrOpts...)

	mux := http.NewServeMux()
	path, h := narrationv1.NewNarrationServiceHandler(narrationHdlr, connectutil.DefaultOptions()...)
	mux.Handle(path, h)
	handler.NewAudioHandler(store, orch).Register(mux)

	initOpts = append(initOpts, frame.WithHTTPHandler(
		connectutil.H2CHandler(connectutil.AuthenticatedHTTPMiddleware(mux, authenticator)),
	))
	srv.Init(ctx, initOpts...)

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
