// Package httpapi implements the HTTP façade of §6: every `/urdf/...`
// endpoint, `{ok, ts}` JSON envelopes (export answers with a bare JSON-LD
// attachment instead), and best-effort event publication. The store and
// query endpoints publish an event for every request; the rules and export
// endpoints publish only their errors, and zurl publishes nothing.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/nrua/urdf-core/internal/events"
	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/sparql"
	"github.com/nrua/urdf-core/internal/store"
	"github.com/nrua/urdf-core/internal/urdferr"
	"github.com/nrua/urdf-core/version"
)

// RulesEditor is the subset of rules CRUD the façade needs. The
// implementation (rulesmgr.Manager, as wired in cmd/urdfd) triggers the
// inference orchestrator's debounced reload after a successful mutation;
// this package does not trigger it directly.
type RulesEditor interface {
	Create(rule jsonld.Node) error
	Update(rule jsonld.Node) error
	Delete(id string) error
}

// Server wires the store, SPARQL gateway, rules editor, and event hub into
// the HTTP façade.
type Server struct {
	store   *store.Store
	gateway *sparql.Gateway
	rules   RulesEditor
	hub     *events.Hub
	log     *zap.Logger
	router  *mux.Router
}

// New builds the façade's router. hub may be nil (events become a no-op).
func New(st *store.Store, gw *sparql.Gateway, rules RulesEditor, hub *events.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{store: st, gateway: gw, rules: rules, hub: hub, log: logger}
	s.router = s.buildRouter()
	return s
}

// Handler returns the CORS-wrapped handler to mount on the host's admin
// surface.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST"}})
	return c.Handler(s.router)
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/urdf/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/urdf/size", s.handleSize).Methods(http.MethodGet)
	r.HandleFunc("/urdf/graph", s.handleGraph).Methods(http.MethodGet)
	r.HandleFunc("/urdf/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/urdf/node", s.handleNode).Methods(http.MethodGet)
	r.HandleFunc("/urdf/clear", s.handleClear).Methods(http.MethodPost)
	r.HandleFunc("/urdf/load", s.handleLoad).Methods(http.MethodPost)
	r.HandleFunc("/urdf/loadFile", s.handleLoadFile).Methods(http.MethodPost)
	r.HandleFunc("/urdf/query", s.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/urdf/rules/create", s.handleRuleCreate).Methods(http.MethodPost)
	r.HandleFunc("/urdf/rules/update", s.handleRuleUpdate).Methods(http.MethodPost)
	r.HandleFunc("/urdf/rules/delete", s.handleRuleDelete).Methods(http.MethodPost)
	r.HandleFunc("/urdf/zurl", s.handleZurl).Methods(http.MethodGet)
	if s.hub != nil {
		r.HandleFunc("/urdf/events", s.hub.ServeHTTP)
	}
	return r
}

func nowMS() int64 { return time.Now().UnixMilli() }

func (s *Server) writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) publish(ctx context.Context, typ events.Type, method, path string, resp map[string]interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(ctx, events.Event{
		TS:       nowMS(),
		Type:     typ,
		Request:  events.RequestInfo{Method: method, Path: path},
		Response: resp,
	})
}

func (s *Server) writeError(w http.ResponseWriter, ctx context.Context, typ events.Type, method, path string, err error) {
	status := urdferr.HTTPStatus(urdferr.KindOf(err))
	body := map[string]interface{}{"ok": false, "ts": nowMS(), "error": err.Error(), "kind": string(urdferr.KindOf(err))}
	s.writeJSON(w, status, body)
	s.publish(ctx, typ, method, path, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"ok": true, "ts": nowMS(), "size": s.store.Size(""),
		"version": version.Version, "gitHash": version.GitHash,
	}
	s.writeJSON(w, http.StatusOK, body)
	s.publish(r.Context(), events.Health, r.Method, r.URL.Path, body)
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	gid := r.URL.Query().Get("gid")
	body := map[string]interface{}{"ok": true, "ts": nowMS(), "totalSize": s.store.Size("")}
	if gid != "" {
		body["gid"] = gid
		body["size"] = s.store.Size(gid)
	}
	s.writeJSON(w, http.StatusOK, body)
	s.publish(r.Context(), events.Size, r.Method, r.URL.Path, body)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	gid := r.URL.Query().Get("gid")
	if gid == "" {
		s.writeError(w, r.Context(), events.Graph, r.Method, r.URL.Path,
			urdferr.New(urdferr.KindNotFound, "gid query parameter is required"))
		return
	}
	nodes, err := s.store.FindGraph(gid)
	if err != nil {
		s.writeError(w, r.Context(), events.Graph, r.Method, r.URL.Path, err)
		return
	}
	body := map[string]interface{}{"ok": true, "ts": nowMS(), "gid": gid, "graph": nodes}
	s.writeJSON(w, http.StatusOK, body)
	s.publish(r.Context(), events.Graph, r.Method, r.URL.Path, body)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	gid := r.URL.Query().Get("gid")
	nodes, err := s.store.FindGraph(gid)
	if err != nil {
		s.writeError(w, r.Context(), events.Graph, r.Method, r.URL.Path, err)
		return
	}
	w.Header().Set("Content-Type", "application/ld+json")
	w.Header().Set("Content-Disposition", `attachment; filename="export.jsonld"`)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"@id": gid, "@graph": nodes})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	gid := r.URL.Query().Get("gid")
	node, err := s.store.Find(id, gid)
	if err != nil {
		s.writeError(w, r.Context(), events.Node, r.Method, r.URL.Path, err)
		return
	}
	body := map[string]interface{}{"ok": true, "ts": nowMS(), "id": id, "gid": gid, "node": node}
	s.writeJSON(w, http.StatusOK, body)
	s.publish(r.Context(), events.Node, r.Method, r.URL.Path, body)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Gid string `json:"gid"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.store.Clear(req.Gid)
	body := map[string]interface{}{"ok": true, "ts": nowMS()}
	if req.Gid != "" {
		body["gid"] = req.Gid
	}
	s.writeJSON(w, http.StatusOK, body)
	s.publish(r.Context(), events.Clear, r.Method, r.URL.Path, body)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var raw interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeError(w, r.Context(), events.Load, r.Method, r.URL.Path,
			urdferr.Wrap(urdferr.KindContract, "malformed JSON-LD body", err))
		return
	}
	docs, err := asGraphDocs(raw, "")
	if err != nil {
		s.writeError(w, r.Context(), events.Load, r.Method, r.URL.Path, err)
		return
	}
	size, err := s.store.Load(docs)
	if err != nil {
		s.writeError(w, r.Context(), events.Load, r.Method, r.URL.Path, err)
		return
	}
	body := map[string]interface{}{"ok": true, "ts": nowMS(), "size": size}
	s.writeJSON(w, http.StatusOK, body)
	s.publish(r.Context(), events.Load, r.Method, r.URL.Path, body)
}

func (s *Server) handleLoadFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Doc map[string]interface{} `json:"doc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r.Context(), events.LoadFile, r.Method, r.URL.Path,
			urdferr.Wrap(urdferr.KindContract, "malformed request body", err))
		return
	}
	gid, _ := req.Doc["@id"].(string)
	if gid == "" {
		s.writeError(w, r.Context(), events.LoadFile, r.Method, r.URL.Path,
			urdferr.New(urdferr.KindContract, "doc must carry @id"))
		return
	}
	graph, _ := req.Doc["@graph"].([]interface{})
	size, err := s.store.Load([]store.GraphDoc{{ID: gid, Graph: graph}})
	if err != nil {
		s.writeError(w, r.Context(), events.LoadFile, r.Method, r.URL.Path, err)
		return
	}
	body := map[string]interface{}{"ok": true, "ts": nowMS(), "gid": gid, "size": size, "totalSize": s.store.Size("")}
	s.writeJSON(w, http.StatusOK, body)
	s.publish(r.Context(), events.LoadFile, r.Method, r.URL.Path, body)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SPARQL string `json:"sparql"`
		Gid    string `json:"gid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r.Context(), events.Query, r.Method, r.URL.Path,
			urdferr.Wrap(urdferr.KindContract, "malformed request body", err))
		return
	}
	res, err := s.gateway.Query(r.Context(), req.SPARQL, req.Gid)
	if err != nil {
		s.writeError(w, r.Context(), events.Query, r.Method, r.URL.Path, err)
		return
	}
	body := map[string]interface{}{"ok": true, "ts": nowMS()}
	if res.IsAsk {
		body["type"] = "ASK"
		body["result"] = res.Ask
	} else {
		body["type"] = "SELECT"
		body["results"] = res.Rows
	}
	s.writeJSON(w, http.StatusOK, body)
	s.publish(r.Context(), events.Query, r.Method, r.URL.Path, body)
}

func (s *Server) handleRuleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rule jsonld.Node `json:"rule"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Rule.ID() == "" {
		s.writeError(w, r.Context(), events.Query, r.Method, r.URL.Path,
			urdferr.New(urdferr.KindContract, "rule must carry @id"))
		return
	}
	if err := s.rules.Create(req.Rule); err != nil {
		s.writeError(w, r.Context(), events.Query, r.Method, r.URL.Path, err)
		return
	}
	body := map[string]interface{}{"ok": true, "ts": nowMS()}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleRuleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rule jsonld.Node `json:"rule"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Rule.ID() == "" {
		s.writeError(w, r.Context(), events.Query, r.Method, r.URL.Path,
			urdferr.New(urdferr.KindContract, "rule must carry @id"))
		return
	}
	if err := s.rules.Update(req.Rule); err != nil {
		s.writeError(w, r.Context(), events.Query, r.Method, r.URL.Path, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ts": nowMS()})
}

func (s *Server) handleRuleDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		s.writeError(w, r.Context(), events.Query, r.Method, r.URL.Path,
			urdferr.New(urdferr.KindContract, "id is required"))
		return
	}
	if err := s.rules.Delete(req.ID); err != nil {
		s.writeError(w, r.Context(), events.Query, r.Method, r.URL.Path, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ts": nowMS()})
}

func (s *Server) handleZurl(w http.ResponseWriter, r *http.Request) {
	d := s.store.Dictionary()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ts": nowMS(), "iris": d.IRIs()})
}

// asGraphDocs normalizes a POST /urdf/load body (a bare JSON-LD object or
// array of nodes) into store.GraphDocs. A payload without an
// {"@id", "@graph"} wrapper goes to defaultGid; handleLoad passes "", the
// store's default graph.
func asGraphDocs(raw interface{}, defaultGid string) ([]store.GraphDoc, error) {
	switch v := raw.(type) {
	case []interface{}:
		return []store.GraphDoc{{ID: defaultGid, Graph: v}}, nil
	case map[string]interface{}:
		if gid, ok := v["@id"].(string); ok {
			if graph, ok := v["@graph"].([]interface{}); ok {
				return []store.GraphDoc{{ID: gid, Graph: graph}}, nil
			}
		}
		return []store.GraphDoc{{ID: defaultGid, Graph: []interface{}{v}}}, nil
	default:
		return nil, urdferr.New(urdferr.KindContract, "body must be a JSON-LD object or array")
	}
}
