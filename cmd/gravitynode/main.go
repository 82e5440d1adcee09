// Command gravitynode wires the Gravity core components together behind an
// HTTP surface (read-only query routes, spec §6, plus POST routes for
// reconfigure, vote and resolve) and a genesis bootstrap CLI,
// mirroring the teacher's node-process wiring under cmd/.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gravity/internal/chain"
	"gravity/internal/config"
	"gravity/internal/genesis"
	"gravity/internal/governance"
	"gravity/internal/query"
	"gravity/internal/reconfiguration"
	"gravity/internal/staking"
	"gravity/internal/telemetry"
	"gravity/internal/validator"
	"gravity/internal/voting"
)

func main() {
	var (
		genesisPath = flag.String("genesis", "genesis.toml", "path to the genesis TOML document")
		listenAddr  = flag.String("listen", ":8080", "HTTP listen address for the read-only query surface")
		initOnly    = flag.Bool("write-default-genesis", false, "write a starter genesis.toml to -genesis and exit")
		env         = flag.String("env", "dev", "deployment environment label for structured logs")
	)
	flag.Parse()

	logger := chain.SetupLogging("gravitynode", *env)

	if *initOnly {
		if err := genesis.WriteDefault(*genesisPath); err != nil {
			logger.Error("failed to write default genesis", "error", err)
			os.Exit(1)
		}
		logger.Info("wrote default genesis", "path", *genesisPath)
		return
	}

	record, err := genesis.Load(*genesisPath)
	if err != nil {
		logger.Error("failed to load genesis", "error", err)
		os.Exit(1)
	}

	clock := chain.NewClock(0)
	emitter := chain.SlogEmitter{Logger: logger}
	telem := telemetry.New(telemetry.Config{ServiceName: "gravitynode", MetricsPrefix: "gravity"})

	configStore := config.NewStore()
	if err := configStore.Initialize(chain.SystemAddress(chain.RoleGenesis), record); err != nil {
		logger.Error("failed to initialize config store", "error", err)
		os.Exit(1)
	}

	factory := staking.New(staking.Deps{
		Clock:   clock,
		Params:  configStore,
		Emitter: emitter,
	})

	validators := validator.New(validator.Deps{
		Clock:   clock,
		Params:  configStore,
		Pools:   factory,
		Emitter: emitter,
	})
	factory.SetBondGuard(validators)

	coordinator := reconfiguration.New(reconfiguration.Deps{
		Clock:      clock,
		Config:     configStore,
		Validators: validators,
		Emitter:    emitter,
		Tracer:     telem,
	})
	factory.SetGate(coordinator)
	validators.SetGate(coordinator)

	votingEngine := voting.New(voting.Deps{Clock: clock, Emitter: emitter})
	govBinding := governance.New(governance.Deps{
		Clock:  clock,
		Pools:  factory,
		Voting: votingEngine,
		Params: configStore,
	})

	logger.Info("gravitynode initialized", "listen", *listenAddr)

	router := chi.NewRouter()
	router.Get("/metrics", promhttp.HandlerFor(telem.Registry(), promhttp.HandlerOpts{}).ServeHTTP)
	router.Get("/v1/epoch", handleEpoch(coordinator, validators))
	router.Get("/v1/pools/{address}", handlePool(factory))
	router.Get("/v1/validators/current", handleCurrentValidators(validators))
	router.Get("/v1/validators/next", handleNextValidators(validators))
	router.Get("/v1/proposals/{id}", handleProposal(votingEngine))
	router.Post("/v1/reconfigure", handleReconfigure(coordinator, validators, telem))
	router.Post("/v1/governance/{pool}/vote/{proposalId}", handleVote(govBinding))
	router.Post("/v1/proposals/{id}/resolve", handleResolveProposal(votingEngine, telem))

	if err := http.ListenAndServe(*listenAddr, router); err != nil {
		logger.Error("http server exited", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func handleEpoch(coord *reconfiguration.Coordinator, validators *validator.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"currentEpoch":           coord.CurrentEpoch(),
			"isTransitionInProgress": coord.IsTransitionInProgress(),
			"totalVotingPower":       validators.TotalVotingPower().String(),
			"activeValidatorCount":   validators.ActiveValidatorCount(),
			"pendingActiveCount":     validators.PendingActiveCount(),
			"pendingInactiveCount":   validators.PendingInactiveCount(),
		})
	}
}

func handlePool(factory *staking.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := chain.ParseAddress(chi.URLParam(r, "address"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		pool, ok := factory.GetPoolByAddress(addr)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": chain.ErrInvalidPool.Error()})
			return
		}
		writeJSON(w, http.StatusOK, query.BuildPoolView(addr, pool))
	}
}

func handleCurrentValidators(validators *validator.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, query.BuildConsensusInfoViews(validators.GetCurValidatorConsensusInfos()))
	}
}

func handleNextValidators(validators *validator.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, query.BuildConsensusInfoViews(validators.GetNextValidatorConsensusInfos()))
	}
}

func handleReconfigure(coord *reconfiguration.Coordinator, validators *validator.Manager, telem *telemetry.Telemetry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := coord.ReconfigureCtx(r.Context(), chain.SystemAddress(chain.RoleBlock)); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		votingPower, _ := new(big.Float).SetInt(validators.TotalVotingPower()).Float64()
		telem.ObserveEpoch(coord.CurrentEpoch(), votingPower, validators.ActiveValidatorCount(), validators.PendingActiveCount(), validators.PendingInactiveCount())
		writeJSON(w, http.StatusOK, map[string]uint64{"currentEpoch": coord.CurrentEpoch()})
	}
}

func handleResolveProposal(engine *voting.Engine, telem *telemetry.Telemetry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id uint64
		if _, err := fmt.Sscanf(chi.URLParam(r, "id"), "%d", &id); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid proposal id"})
			return
		}
		state, err := engine.Resolve(id)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		outcome := "failed"
		if state == voting.StateExecuted {
			outcome = "executed"
		}
		telem.ObserveProposalResolved(outcome)
		writeJSON(w, http.StatusOK, map[string]string{"state": state.String()})
	}
}

func handleVote(binding *governance.Binding) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pool, err := chain.ParseAddress(chi.URLParam(r, "pool"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		var proposalID uint64
		if _, err := fmt.Sscanf(chi.URLParam(r, "proposalId"), "%d", &proposalID); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid proposal id"})
			return
		}
		support := r.URL.Query().Get("support") != "false"
		voter, err := chain.ParseAddress(r.URL.Query().Get("caller"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid caller address"})
			return
		}
		if err := binding.Vote(voter, pool, proposalID, support); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func handleProposal(engine *voting.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id uint64
		if _, err := fmt.Sscanf(chi.URLParam(r, "id"), "%d", &id); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid proposal id"})
			return
		}
		view, ok := query.BuildProposalView(engine, id)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": chain.ErrProposalNotFound.Error()})
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
