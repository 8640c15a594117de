package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"k8s.io/klog/v2"

	"cauldron-optimizer/internal/coeff"
	"cauldron-optimizer/internal/config"
	"cauldron-optimizer/internal/optimizer"
	"cauldron-optimizer/internal/report"
	"cauldron-optimizer/internal/service"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type loader func(context.Context) (config.Config, *coeff.Store, error)

// app holds the dataset across invocations of one execution environment.
// A failed load is retried on the next request.
type app struct {
	load loader

	mu    sync.Mutex
	cfg   config.Config
	store *coeff.Store
}

type optimizeResult struct {
	service.Response
	Detail string `json:"detail"`
}

type limitsResult struct {
	Version       string `json:"version,omitempty"`
	MaxCategories int    `json:"maxCategories"`
	Items         int    `json:"items"`
	Budget        int    `json:"budget"`
	MaxStarts     int    `json:"maxStarts"`
}

func (a *app) dataset(ctx context.Context) (config.Config, *coeff.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		return a.cfg, a.store, nil
	}
	cfg, store, err := a.load(ctx)
	if err != nil {
		return cfg, nil, err
	}
	a.cfg, a.store = cfg, store
	return cfg, store, nil
}

func (a *app) handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	cfg, store, err := a.dataset(ctx)
	if err != nil {
		klog.ErrorS(err, "loading dataset")
		return errResp(http.StatusInternalServerError, "dataset unavailable")
	}

	if event.RequestContext.HTTP.Method == http.MethodGet {
		limits := optimizer.LimitsOf(store)
		return okResp(limitsResult{
			Version:       store.Version(),
			MaxCategories: limits.MaxCategories,
			Items:         limits.Items,
			Budget:        limits.Budget,
			MaxStarts:     service.MaxStarts,
		})
	}

	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(http.StatusBadRequest, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req service.Request
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(http.StatusBadRequest, "invalid JSON: "+err.Error())
	}

	resp, err := service.Run(store, cfg.Fill(req), cfg.OptimizerConfig())
	if service.IsValidationError(err) {
		return errResp(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		klog.ErrorS(err, "optimize")
		return errResp(http.StatusInternalServerError, "optimization failed")
	}
	return okResp(optimizeResult{Response: resp, Detail: report.Format(resp)})
}

func okResp(v any) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(v)
	return events.LambdaFunctionURLResponse{StatusCode: http.StatusOK, Headers: jsonHeader, Body: string(body)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}
