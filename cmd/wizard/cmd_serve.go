package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uwizard/internal/dispatch"
	"uwizard/internal/engine"
)

var serveAddr string

// serveCmd runs the local loopback HTTP surface (spec.md §6): contract
// status/repair and dispatch, all behind the same Engine the other two
// surfaces use.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the local HTTP dispatch server (loopback only)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8733", "bind address (must resolve to loopback)")
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.StartBackgroundProbe(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin-token/contract/status", handleContractStatus(eng))
	mux.HandleFunc("/api/admin-token/contract/repair", handleContractRepair(eng))
	mux.HandleFunc("/api/dispatch", handleDispatch(eng))

	if logger != nil {
		logger.Info("wizard server listening", zap.String("addr", serveAddr))
	}
	return http.ListenAndServe(serveAddr, mux)
}

func handleContractStatus(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		status, err := eng.ContractStatus(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func handleContractRepair(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		result, err := eng.RepairContract(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if !result.OK {
			status = dispatch.ErrContractUnrepairable.HTTPStatus()
		}
		writeJSON(w, status, result)
	}
}

type dispatchRequestBody struct {
	Input   string `json:"input"`
	Confirm bool   `json:"confirm"`
	DryRun  bool   `json:"dry_run"`
	Debug   bool   `json:"dispatch_debug"`
}

func handleDispatch(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body dispatchRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("malformed request body: %v", err)})
			return
		}

		req := &dispatch.Request{
			ID:      uuid.NewString(),
			Input:   body.Input,
			Caller:  dispatch.CallerHTTP,
			Debug:   body.Debug,
			Confirm: body.Confirm,
			DryRun:  body.DryRun,
		}

		resp := eng.Dispatch(r.Context(), req)

		status := http.StatusOK
		if resp.Status == dispatch.StatusError {
			status = dispatch.ErrorKind(resp.Code).HTTPStatus()
		}
		writeJSON(w, status, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
