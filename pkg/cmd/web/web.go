package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lirigen/lirigen/pkg/session"
	"github.com/lirigen/lirigen/pkg/sunobox"
)

type Config struct {
	Debug   bool
	APIKey  string
	BaseURL string
	Proxy   string
	Wait    time.Duration

	Addr        string
	Credentials map[string]string
	Refresh     time.Duration
}

//go:embed static/*
var staticContent embed.FS

// Serve starts the web front end. One server process holds one session:
// its tracker is the only state and it dies with the process.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("web: server started")
	defer log.Println("web: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("web: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	client := sunobox.New(&sunobox.Config{
		Wait:    cfg.Wait,
		Debug:   cfg.Debug,
		Client:  httpClient,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
	})
	tracker := session.New()

	// Create static content
	staticFS, err := iofs.Sub(staticContent, "static")
	if err != nil {
		return fmt.Errorf("web: couldn't load static content: %w", err)
	}

	// Create router
	mux := chi.NewRouter()

	// Add middleware
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))

	// Add BasicAuth middleware
	if len(cfg.Credentials) > 0 {
		mux.Use(middleware.BasicAuth("private", cfg.Credentials))
	}

	// Create subrouter for api endpoints
	r := mux.Group(func(r chi.Router) {
		if cfg.Debug {
			r.Use(middleware.Logger)
		}
	})

	// Create server
	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("web: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("web: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: mux,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("Starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v\n", err)
			cancel()
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	// Handler to serve the static files
	mux.Get("/*", http.StripPrefix("/", http.FileServer(http.FS(staticFS))).ServeHTTP)

	r.Post("/api/generations", func(w http.ResponseWriter, r *http.Request) {
		var in generateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, fmt.Sprintf("couldn't decode request: %v", err), http.StatusBadRequest)
			return
		}
		req := &sunobox.GenerateRequest{
			Prompt:       in.Prompt,
			Style:        in.Style,
			Title:        in.Title,
			Model:        in.Model,
			CustomMode:   in.CustomMode,
			Instrumental: in.Instrumental,
			NegativeTags: in.NegativeTags,
		}
		if ok, errs := sunobox.Validate(req); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": errs})
			return
		}
		count := in.Count
		if count <= 0 {
			count = 2
		}
		var statuses []*session.Status
		for i := 1; i <= count; i++ {
			v := *req
			if v.Title != "" {
				v.Title = fmt.Sprintf("%s - Version %d", req.Title, i)
			}
			gen, err := client.Generate(r.Context(), &v)
			if err != nil {
				log.Println("couldn't generate song:", err)
				http.Error(w, fmt.Sprintf("couldn't generate song: %v", err), http.StatusBadGateway)
				return
			}
			key := tracker.Add(&session.Status{
				TaskID: gen.TaskID,
				Title:  v.Title,
				Model:  v.Model,
				Prompt: v.Prompt,
				Style:  v.Style,
				Raw:    gen.Raw,
			})
			st, _ := tracker.Get(key)
			statuses = append(statuses, st)
		}
		writeJSON(w, statuses)
	})

	r.Get("/api/generations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, tracker.List())
	})

	r.Post("/api/generations/{key}/check", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		st, ok := tracker.Get(key)
		if !ok {
			http.Error(w, "couldn't find generation", http.StatusNotFound)
			return
		}
		if st.TaskID == "" {
			http.Error(w, "generation has no task id", http.StatusConflict)
			return
		}
		result, err := refresh(r.Context(), client, tracker, st)
		if err != nil {
			log.Println("couldn't check generation:", err)
			http.Error(w, fmt.Sprintf("couldn't check generation: %v", err), http.StatusBadGateway)
			return
		}
		st, _ = tracker.Get(key)
		writeJSON(w, &checkOutput{Status: st, Attempts: result.Attempts})
	})

	r.Post("/api/generations/check", func(w http.ResponseWriter, r *http.Request) {
		for _, st := range tracker.Active() {
			if _, err := refresh(r.Context(), client, tracker, st); err != nil {
				log.Println("couldn't check generation:", err)
			}
		}
		writeJSON(w, tracker.List())
	})

	r.Post("/api/callback", func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("couldn't read payload: %v", err), http.StatusBadRequest)
			return
		}
		if !json.Valid(raw) {
			http.Error(w, "payload is not valid JSON", http.StatusBadRequest)
			return
		}
		if msg, ok := sunobox.APIError(raw); ok {
			http.Error(w, fmt.Sprintf("payload carries an error: %s", msg), http.StatusBadRequest)
			return
		}
		songs, ok := sunobox.Songs(raw)
		if !ok {
			http.Error(w, "no completed songs in payload", http.StatusUnprocessableEntity)
			return
		}
		// Settle the matching tracker entry when the payload names a task
		if id, ok := sunobox.TaskID(raw); ok {
			for _, st := range tracker.Active() {
				if st.TaskID != id {
					continue
				}
				if err := tracker.Complete(st.Key, songs, raw); err != nil {
					log.Println("couldn't complete generation:", err)
				}
				writeJSON(w, songs)
				return
			}
		}
		tracker.AddSongs(songs...)
		writeJSON(w, songs)
	})

	r.Get("/api/songs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, tracker.Songs())
	})

	r.Get("/api/audio", func(w http.ResponseWriter, r *http.Request) {
		u := r.URL.Query().Get("u")
		if !allowedAudio(tracker, u) {
			http.Error(w, "unknown audio url", http.StatusNotFound)
			return
		}
		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("couldn't create request: %v", err), http.StatusInternalServerError)
			return
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			http.Error(w, fmt.Sprintf("couldn't download audio: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			http.Error(w, fmt.Sprintf("audio url returned %d", resp.StatusCode), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Println("couldn't stream audio:", err)
		}
	})

	// Background refresh on a fixed interval, one check at a time
	if cfg.Refresh > 0 {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(cfg.Refresh):
				}
				for _, st := range tracker.Active() {
					if _, err := refresh(ctx, client, tracker, st); err != nil {
						log.Println("couldn't refresh generation:", err)
					}
				}
			}
		}()
	}

	<-ctx.Done()
	return nil
}

func refresh(ctx context.Context, client *sunobox.Client, tracker *session.Tracker, st *session.Status) (*sunobox.StatusResult, error) {
	result, err := client.CheckStatus(ctx, st.TaskID)
	if errors.Is(err, sunobox.ErrNoEndpoint) {
		result, err = client.FetchDetails(ctx, st.TaskID)
	}
	if err != nil {
		return result, err
	}
	if msg, ok := sunobox.APIError(result.Raw); ok {
		if err := tracker.Fail(st.Key, msg); err != nil {
			return result, err
		}
		return result, nil
	}
	songs, ok := sunobox.Songs(result.Raw)
	if !ok {
		// Still processing
		return result, nil
	}
	if err := tracker.Complete(st.Key, songs, result.Raw); err != nil {
		return result, err
	}
	return result, nil
}

// allowedAudio only proxies URLs the session actually knows about.
func allowedAudio(tracker *session.Tracker, u string) bool {
	if u == "" {
		return false
	}
	for _, song := range tracker.Songs() {
		if song.AudioURL == u {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("couldn't encode response:", err)
		http.Error(w, fmt.Sprintf("couldn't encode response: %v", err), http.StatusInternalServerError)
	}
}

type generateInput struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style"`
	Title        string `json:"title"`
	Model        string `json:"model"`
	CustomMode   bool   `json:"custom_mode"`
	Instrumental bool   `json:"instrumental"`
	NegativeTags string `json:"negative_tags"`
	Count        int    `json:"count"`
}

type checkOutput struct {
	Status   *session.Status   `json:"status"`
	Attempts []sunobox.Attempt `json:"attempts"`
}
