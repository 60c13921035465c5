package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/singleflight"

	"github.com/ownermine/ownermine/internal/cache"
	"github.com/ownermine/ownermine/internal/ownererr"
	"github.com/ownermine/ownermine/internal/query"
	"github.com/ownermine/ownermine/internal/storage"
)

const (
	serveReadTimeout  = 10 * time.Second
	serveWriteTimeout = 30 * time.Second
	serveIdleTimeout  = 60 * time.Second
)

var (
	servePort        string
	serveSnapshotDir string
	serveUseIndex    bool
	serveCacheAddr   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query engine over HTTP",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&servePort, "port", "p", "8080", "port to listen on")
	f.StringVar(&serveSnapshotDir, "snapshot", "./ownership-snapshot", "snapshot directory to serve")
	f.BoolVar(&serveUseIndex, "index", false, "accelerate queries with the SQLite index (C13)")
	f.StringVar(&serveCacheAddr, "cache-addr", "", "Redis address to cache query results against (C14)")
}

// ownerServer wraps the query engine behind HTTP, deduplicating
// concurrent identical requests with a singleflight.Group so a burst of
// requests for the same operation and arguments only computes once —
// the cache (when enabled) still persists the answer across bursts.
type ownerServer struct {
	engine *query.Engine
	cache  *cache.Client
	group  singleflight.Group
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var source query.RecordSource
	if serveUseIndex {
		idx, err := storage.Open(cfg.Index.Path, serveSnapshotDir, log)
		if err != nil {
			return err
		}
		defer idx.Close()
		source = idx
	}

	var cacheClient *cache.Client
	if serveCacheAddr != "" {
		c, err := cache.NewClient(ctx, serveCacheAddr, cfg.QueryCache.Password, 0, log)
		if err != nil {
			return err
		}
		defer c.Close()
		cacheClient = c
	}

	srv := &ownerServer{engine: query.NewEngine(serveSnapshotDir, source), cache: cacheClient}

	mux := http.NewServeMux()
	mux.HandleFunc("/people", srv.handlePeople)
	mux.HandleFunc("/files", srv.handleFiles)
	mux.HandleFunc("/person", srv.handlePerson)
	mux.HandleFunc("/file", srv.handleFile)
	mux.HandleFunc("/cochange", srv.handleCoChange)
	mux.HandleFunc("/tag", srv.handleTag)
	mux.HandleFunc("/summary", srv.handleSummary)
	mux.HandleFunc("/communities", srv.handleCommunities)
	mux.HandleFunc("/community", srv.handleCommunity)

	httpSrv := &http.Server{
		Addr:         ":" + servePort,
		Handler:      mux,
		ReadTimeout:  serveReadTimeout,
		WriteTimeout: serveWriteTimeout,
		IdleTimeout:  serveIdleTimeout,
	}

	log.WithField("port", servePort).Info("query server listening")
	return httpSrv.ListenAndServe()
}

// do dedupes concurrent identical requests via singleflight, then
// serves from cache (when configured) or computes fresh.
func (s *ownerServer) do(ctx context.Context, operation string, params map[string]interface{}, compute func() (interface{}, error), w http.ResponseWriter) {
	generatedAt := cachedGeneratedAt(s.engine)
	key := cache.Key(operation, params, generatedAt)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if s.cache == nil {
			return compute()
		}
		return cache.GetOrCompute(ctx, s.cache, key, compute)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, v)
}

func (s *ownerServer) handlePeople(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := query.PeopleFilter{
		EmailSubstring: q.Get("email"),
		MinTouches:     atoiDefault(q.Get("min_touches"), 0),
		MinSensitive:   atofDefault(q.Get("min_sensitive"), 0),
		SortKey:        q.Get("sort"),
		Limit:          atoiDefault(q.Get("limit"), 20),
	}
	s.do(r.Context(), "people", map[string]interface{}{
		"email": filter.EmailSubstring, "min_touches": filter.MinTouches,
		"min_sensitive": filter.MinSensitive, "sort": filter.SortKey, "limit": filter.Limit,
	}, func() (interface{}, error) { return s.engine.People(filter) }, w)
}

func (s *ownerServer) handleFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := query.FilesFilter{
		PathSubstring:  q.Get("path"),
		Tag:            q.Get("tag"),
		MaxBusFactor:   atoiDefault(q.Get("max_bus_factor"), 0),
		MinSensitivity: atofDefault(q.Get("min_sensitivity"), 0),
		SortKey:        q.Get("sort"),
		Limit:          atoiDefault(q.Get("limit"), 20),
	}
	s.do(r.Context(), "files", map[string]interface{}{
		"path": filter.PathSubstring, "tag": filter.Tag, "max_bus_factor": filter.MaxBusFactor,
		"min_sensitivity": filter.MinSensitivity, "sort": filter.SortKey, "limit": filter.Limit,
	}, func() (interface{}, error) { return s.engine.Files(filter) }, w)
}

func (s *ownerServer) handlePerson(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	sortKey := q.Get("sort")
	limit := atoiDefault(q.Get("limit"), 10)
	s.do(r.Context(), "person", map[string]interface{}{"id": id, "sort": sortKey, "limit": limit},
		func() (interface{}, error) { return s.engine.Person(id, sortKey, limit) }, w)
}

func (s *ownerServer) handleFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	sortKey := q.Get("sort")
	limit := atoiDefault(q.Get("limit"), 10)
	s.do(r.Context(), "file", map[string]interface{}{"id": id, "sort": sortKey, "limit": limit},
		func() (interface{}, error) { return s.engine.File(id, sortKey, limit) }, w)
}

func (s *ownerServer) handleCoChange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	minJaccard := atofDefault(q.Get("min_jaccard"), 0)
	minCount := atoiDefault(q.Get("min_count"), 0)
	limit := atoiDefault(q.Get("limit"), 20)
	s.do(r.Context(), "cochange", map[string]interface{}{"id": id, "min_jaccard": minJaccard, "min_count": minCount, "limit": limit},
		func() (interface{}, error) { return s.engine.CoChange(id, minJaccard, minCount, limit) }, w)
}

func (s *ownerServer) handleTag(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag := q.Get("tag")
	if tag == "" {
		http.Error(w, "tag is required", http.StatusBadRequest)
		return
	}
	limit := atoiDefault(q.Get("limit"), 10)
	s.do(r.Context(), "tag", map[string]interface{}{"tag": tag, "limit": limit},
		func() (interface{}, error) { return s.engine.Tag(tag, limit) }, w)
}

func (s *ownerServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, summary)
}

func (s *ownerServer) handleCommunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeFiles := q.Get("include_files") == "true"
	fileLimit := atoiDefault(q.Get("file_limit"), 0)
	limit := atoiDefault(q.Get("limit"), 0)
	s.do(r.Context(), "communities", map[string]interface{}{"include_files": includeFiles, "file_limit": fileLimit, "limit": limit},
		func() (interface{}, error) { return s.engine.Communities("", includeFiles, fileLimit, limit) }, w)
}

func (s *ownerServer) handleCommunity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	fileLimit := atoiDefault(q.Get("file_limit"), 0)
	s.do(r.Context(), "community", map[string]interface{}{"id": id, "file_limit": fileLimit},
		func() (interface{}, error) { return s.engine.Communities(id, true, fileLimit, 0) }, w)
}

func writeJSONResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch ownererr.KindOf(err) {
	case ownererr.NotFound:
		return http.StatusNotFound
	case ownererr.Ambiguous:
		return http.StatusConflict
	case ownererr.MissingArtifact:
		return http.StatusNotFound
	case ownererr.Config:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func atofDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
