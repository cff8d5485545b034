// Command urdfd boots the core semantic runtime: it loads the dictionary,
// ontology, and rules graphs, serves the HTTP façade, waits for the host
// admin surface, loads the environment graph, then translates and loads the
// application graph once and schedules the first (debounced) inference
// cycle. It does not listen for host flow-change events, so the application
// graph is translated only at startup.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nrua/urdf-core/internal/config"
	"github.com/nrua/urdf-core/internal/dict"
	"github.com/nrua/urdf-core/internal/events"
	"github.com/nrua/urdf-core/internal/hostclient"
	"github.com/nrua/urdf-core/internal/httpapi"
	"github.com/nrua/urdf-core/internal/inference"
	"github.com/nrua/urdf-core/internal/jsonld"
	"github.com/nrua/urdf-core/internal/log"
	"github.com/nrua/urdf-core/internal/reasoner"
	"github.com/nrua/urdf-core/internal/rulesmgr"
	"github.com/nrua/urdf-core/internal/sparql"
	"github.com/nrua/urdf-core/internal/store"
	"github.com/nrua/urdf-core/internal/translator"
	"github.com/nrua/urdf-core/voc/core"
)

func main() {
	cfg, err := config.Load(os.Getenv("NRUA_CONFIG_YAML"))
	if err != nil {
		panic(err)
	}
	logger, err := log.New(cfg.Verbose)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("urdfd exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d := loadDictionary(cfg, logger)
	st := store.New(d, nil)
	st.SetEvaluator(sparql.NewMemEvaluator(st))
	gateway := sparql.New(st)

	loadStartupGraph(st, logger, cfg.OntologyPath, cfg.OntologyGraph, "ontology")
	loadStartupGraph(st, logger, cfg.RulesPath, cfg.RulesGraph, "rules")

	if watcher, err := config.NewWatcher([]string{cfg.DictionaryPath, cfg.OntologyPath, cfg.RulesPath}, logger); err != nil {
		logger.Warn("failed to start config source watcher", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	hub := events.NewHub(logger)
	reasonerCap := reasoner.NewMangleCapability()

	var debouncer *inference.Debouncer
	orc := inference.New(st, reasonerCap, cfg.RulesGraph, cfg.InferredGraph, func(s inference.Summary) {
		hub.Publish(ctx, events.Event{
			TS:   time.Now().UnixMilli(),
			Type: events.Inference,
			Response: map[string]interface{}{
				"ok": true, "reason": s.Reason, "ruleCount": s.RuleCount,
				"tripleCount": s.TripleCount, "inferredSize": s.InferredSize,
			},
		})
	}, logger)
	debouncer = inference.NewDebouncer(cfg.DebounceWindow, orc.Run, func(err error) {
		logger.Warn("inference cycle failed", zap.Error(err))
	})

	rules := rulesmgr.New(st, cfg.RulesGraph, debouncer.Trigger)
	server := httpapi.New(st, gateway, rules, hub, logger)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Handler()}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()
	defer httpSrv.Close()

	admin := hostclient.New(cfg.HostAdminURL)
	go bootstrapAfterAdminReady(ctx, cfg, admin, st, debouncer, logger)

	<-ctx.Done()
	return nil
}

func loadDictionary(cfg *config.Config, logger *zap.Logger) *dict.Dictionary {
	if cfg.DictionaryPath == "" {
		logger.Info("no dictionary path configured; bootstrapping from the built-in vocabulary")
		d, _ := dict.Load(mustJSON(core.DefaultIRIs()))
		return d
	}
	raw, err := os.ReadFile(cfg.DictionaryPath)
	if err != nil {
		logger.Warn("failed to read dictionary file; falling back to built-in vocabulary", zap.Error(err))
		d, _ := dict.Load(mustJSON(core.DefaultIRIs()))
		return d
	}
	d, err := dict.Load(raw)
	if err != nil {
		logger.Warn("malformed dictionary file; falling back to built-in vocabulary", zap.Error(err))
		d, _ = dict.Load(mustJSON(core.DefaultIRIs()))
	}
	return d
}

func mustJSON(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}

// loadStartupGraph loads a JSON-LD graph file once at startup. A missing or
// malformed file is logged and skipped (ConfigError, non-fatal for the
// affected graph only, §7).
func loadStartupGraph(st *store.Store, logger *zap.Logger, path, gid, label string) {
	if path == "" {
		return
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to read startup graph file", zap.String("graph", label), zap.Error(err))
		return
	}
	var graph []interface{}
	if err := json.Unmarshal(raw, &graph); err != nil {
		var single map[string]interface{}
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			logger.Warn("malformed startup graph file", zap.String("graph", label), zap.Error(err))
			return
		}
		graph = []interface{}{single}
	}
	if _, err := st.Load([]store.GraphDoc{{ID: gid, Graph: graph}}); err != nil {
		logger.Warn("failed to load startup graph", zap.String("graph", label), zap.Error(err))
	}
}

// bootstrapAfterAdminReady implements the deferred startup steps (§5
// "Startup loaders run in a fixed order"): environment load once the host
// admin surface is reachable, then the first application load.
func bootstrapAfterAdminReady(ctx context.Context, cfg *config.Config, admin *hostclient.Client, st *store.Store, debouncer *inference.Debouncer, logger *zap.Logger) {
	if err := hostclient.WaitReady(ctx, admin, cfg.AdminRetries, cfg.AdminRetryWait); err != nil {
		logger.Warn("host admin surface never became reachable; environment and application loads abandoned", zap.Error(err))
		return
	}

	diagnostics, settings, err := admin.Environment(ctx)
	if err != nil {
		logger.Warn("environment load failed", zap.Error(err))
	} else {
		envNode := jsonld.Node{
			"@id": "urn:nrua:e" + cfg.InstanceID,
			"@type": []string{"urn:nrua:Environment"},
		}
		if diagnostics != nil {
			envNode["urn:nrua:diagnostics"] = []interface{}{map[string]interface{}{"@value": mustString(diagnostics)}}
		}
		if settings != nil {
			envNode["urn:nrua:settings"] = []interface{}{map[string]interface{}{"@value": mustString(settings)}}
		}
		if _, err := st.Load([]store.GraphDoc{{ID: cfg.EnvironmentGraph, Graph: []interface{}{map[string]interface{}(envNode)}}}); err != nil {
			logger.Warn("failed to load environment graph", zap.Error(err))
		}
	}

	flows, err := admin.Flows(ctx)
	if err != nil {
		logger.Warn("initial flows fetch failed", zap.Error(err))
		return
	}
	applyFlows(st, cfg, flows, logger)
	debouncer.Trigger(ctx, "startup")
}

func applyFlows(st *store.Store, cfg *config.Config, flows []map[string]interface{}, logger *zap.Logger) {
	raw := make([]translator.RawNode, len(flows))
	for i, f := range flows {
		raw[i] = translator.RawNode(f)
	}
	nodes, err := translator.Translate(cfg.InstanceID, raw)
	if err != nil {
		logger.Warn("flow translation failed; application graph left unchanged", zap.Error(err))
		return
	}
	st.Clear(cfg.ApplicationGraph)
	rawNodes := make([]interface{}, len(nodes))
	for i, n := range nodes {
		rawNodes[i] = map[string]interface{}(n)
	}
	if _, err := st.Load([]store.GraphDoc{{ID: cfg.ApplicationGraph, Graph: rawNodes}}); err != nil {
		logger.Warn("failed to load application graph", zap.Error(err))
	}
}

func mustString(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
