package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/daleiii/vod2pod-go/pkg/config"
	"github.com/daleiii/vod2pod-go/pkg/duration"
	"github.com/daleiii/vod2pod-go/pkg/feed"
	"github.com/daleiii/vod2pod-go/pkg/provider"
	"github.com/daleiii/vod2pod-go/pkg/store"
	"github.com/daleiii/vod2pod-go/pkg/transcode"
	"github.com/daleiii/vod2pod-go/pkg/ytdlp"
	"github.com/daleiii/vod2pod-go/services/api"
)

type Opts struct {
	Debug    bool `long:"debug"`
	NoBanner bool `long:"no-banner"`
}

const banner = `
           _ ____                 _
__   _____   __| |___ _ __   ___   __| |      __ _  ___
\ \ / / _ \ / _` + "`" + ` / __| '_ \ / _ \ / _` + "`" + ` |_____/ _` + "`" + `|/ _ \
 \ V / (_) | (_| \__ \ |_) | (_) | (_| |_____| (_| | (_) |
  \_/ \___/ \__,_|___/ .__/ \___/ \__,_|      \__, |\___/
                      |_|                      |___/
`

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})

	opts := Opts{}
	if _, err := flags.Parse(&opts); err != nil {
		log.WithError(err).Fatal("failed to parse command line arguments")
	}

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if !opts.NoBanner {
		log.Info(banner)
	}

	log.WithFields(log.Fields{
		"version": version,
		"commit":  commit,
		"date":    date,
	}).Info("running vod2pod")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("failed to configure redis store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Error("failed to close redis connection")
		}
	}()

	if err := st.Ping(ctx); err != nil {
		log.WithError(err).Fatal("could not reach redis")
	}
	if err := st.FlushIfVersionChanged(ctx, version); err != nil {
		log.WithError(err).Error("failed to check/flush version marker")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	ytRunner := ytdlp.New()

	resolver := duration.NewResolver(st, cfg.YoutubeAPIKey, duration.NewCLIDurationFunc(ytRunner))

	youtubeProvider := provider.NewYoutubeProvider(cfg, st, client, ytRunner)
	twitchProvider := provider.NewTwitchProvider(cfg, st, client)
	peertubeProvider, err := provider.NewPeerTubeProvider(cfg, client)
	if err != nil {
		log.WithError(err).Fatal("failed to configure peertube provider")
	}
	rumbleProvider := provider.NewRumbleProvider(client, ytRunner)
	genericProvider, err := provider.NewGenericProvider(cfg, client)
	if err != nil {
		log.WithError(err).Fatal("failed to configure generic provider")
	}

	dispatcher := provider.NewDispatcher(youtubeProvider, twitchProvider, peertubeProvider, rumbleProvider, genericProvider)

	enricher := feed.NewEnricher(st, resolver, cfg.Mp3Bitrate, cfg.AudioCodec.Extension(), cfg.AudioCodec.MimeType())
	feed.Version = version

	transcoder := transcode.New()

	router := api.NewRouter(cfg, dispatcher, enricher, transcoder)

	srv := &http.Server{
		Addr:    "0.0.0.0:8080",
		Handler: router.Handler(),
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Infof("running listener at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		defer func() {
			ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Info("shutting down web server")
			if err := srv.Shutdown(ctxShutDown); err != nil {
				log.WithError(err).Error("server shutdown failed")
			}
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			cancel()
			return nil
		}
	})

	if err := group.Wait(); err != nil && err != context.Canceled && err != http.ErrServerClosed {
		log.WithError(err).Error("wait error")
	}
	log.Info("gracefully stopped")
}
