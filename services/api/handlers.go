package api

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/daleiii/vod2pod-go/pkg/transcode"
)

const indexTemplatePath = "./templates/index.html"

// index serves the landing page, logging the request's User-Agent,
// remote address and Referer when all three are present. Grounded on
// original_source/src/server/mod.rs::index.
func (router *Router) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != router.cfg.Subfolder+"/" {
		http.NotFound(w, r)
		return
	}

	userAgent := r.Header.Get("User-Agent")
	referer := r.Header.Get("Referer")
	if userAgent != "" && r.RemoteAddr != "" && referer != "" {
		log.Infof("serving homepage - User-Agent: %s, Remote Address: %s, Referer: %s", userAgent, r.RemoteAddr, referer)
	}

	html, err := os.ReadFile(indexTemplatePath)
	if err != nil {
		log.WithError(err).Error("could not read index template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write(html)
}

func (router *Router) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// transcodizeRSS generates a provider's raw feed for ?url= and rewrites
// it into a transcode-aware podcast feed. Grounded on
// original_source/src/server/mod.rs::transcodize_rss.
func (router *Router) transcodizeRSS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		log.Error("no url provided")
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, p := router.dispatcher.Select(parsedURL)
	if !router.dispatcher.IsAllowed(parsedURL) {
		log.Errorf("supplied url (%s) not in whitelist (whitelist is needed to prevent SSRF attack)", parsedURL)
		http.Error(w, "scheme and host not in whitelist", http.StatusForbidden)
		return
	}

	rawRSS, err := p.GenerateRSS(ctx, parsedURL)
	if err != nil {
		log.WithError(err).Errorf("could not generate rss feed for %s", parsedURL)
		http.Error(w, "", http.StatusConflict)
		return
	}

	transcodeServiceURL := router.transcodeServiceURL(r)
	shouldTranscode := router.cfg.Transcode

	body, err := router.enricher.Transcodize(ctx, parsedURL, transcodeServiceURL, rawRSS, shouldTranscode)
	if err != nil {
		log.WithError(err).Error("could not inject vod2pod customizations into generated feed")
		http.Error(w, "", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(body))
}

// transcodeServiceURL reconstructs the absolute URL of this server's own
// transcode_media/to_mp3 endpoint, standing in for actix-web's
// req.url_for("transcode_mp3", ...).
func (router *Router) transcodeServiceURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return &url.URL{
		Scheme: scheme,
		Host:   r.Host,
		Path:   router.cfg.Subfolder + "/transcode_media/to_mp3",
	}
}

// transcodeToMP3 streams a seeked, re-encoded audio fragment for a
// ?url=&bitrate=&duration= request, honoring the Range header. Grounded
// on original_source/src/server/mod.rs::transcode_to_mp3.
func (router *Router) transcodeToMP3(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	streamURL := query.Get("url")
	bitrateKbit, err := strconv.Atoi(query.Get("bitrate"))
	if err != nil {
		http.Error(w, "invalid bitrate", http.StatusBadRequest)
		return
	}
	durationSecs, err := strconv.ParseInt(query.Get("duration"), 10, 64)
	if err != nil {
		http.Error(w, "invalid duration", http.StatusBadRequest)
		return
	}

	totalBytes := transcode.TotalStreamableBytes(durationSecs, bitrateKbit)
	log.Infof("processing transcode at %dk for %s", bitrateKbit, streamURL)

	if !router.cfg.Transcode {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	parsedURL, err := url.Parse(streamURL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !router.dispatcher.IsAllowed(parsedURL) {
		log.Errorf("supplied url (%s) not in whitelist (whitelist is needed to prevent SSRF attack)", parsedURL)
		http.Error(w, "scheme and host not in whitelist", http.StatusForbidden)
		return
	}

	start, end, expected, err := transcode.ParseRange(r.Header.Get("Range"), totalBytes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if start > end || start > totalBytes {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	seekSeconds := transcode.SeekSeconds(start, totalBytes, durationSecs)
	log.Debugf("chosen seek_time: %f", seekSeconds)

	params := transcode.Params{
		SeekSeconds: seekSeconds,
		StreamURL:   streamURL,
		Codec:       router.cfg.AudioCodec,
		BitrateKbit: bitrateKbit,
		MaxRateKbit: bitrateKbit * 30,
	}

	if !router.cfg.AudioCodec.SeekSupported() && seekSeconds > 0.1 {
		log.Warn("seeking is approximate for non-MP3 codecs")
	}

	cmd, stdout, err := router.transcoder.Start(ctx, params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	status := http.StatusOK
	if seekSeconds > 0.1 {
		status = http.StatusPartialContent
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, totalBytes))
	w.Header().Set("Content-Type", router.cfg.AudioCodec.MimeType())
	w.Header().Set("Content-Length", strconv.FormatInt(expected, 10))
	w.WriteHeader(status)

	if err := router.transcoder.Consume(ctx, cmd, stdout, w); err != nil {
		log.WithError(err).Error("transcode stream failed")
	}
}
