package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
)

const maxBodyBytes = 1 << 20

// HTTPConfig wires the REST gateway used by the web UI.
type HTTPConfig struct {
	Labels       LabelServer
	Products     ProductServer
	Exporter     Exporter
	DefaultOwner string
	CORSOrigins  []string
	// Ready reports dependency health for /healthz; nil means always ready.
	Ready func(r *http.Request) error
	Now   func() time.Time
}

type httpAPI struct {
	cfg     HTTPConfig
	schemas *schemas
	logger  *slog.Logger
}

// NewHTTPHandler returns the REST API wrapped in request and CORS middleware.
func NewHTTPHandler(cfg HTTPConfig, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	sc, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	api := &httpAPI{cfg: cfg, schemas: sc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", api.health)
	mux.HandleFunc("POST /v1/parse", api.parse)
	mux.HandleFunc("GET /v1/products", api.listProducts)
	mux.HandleFunc("POST /v1/products", api.createProduct)
	mux.HandleFunc("GET /v1/products/{id}", api.getProduct)
	mux.HandleFunc("PATCH /v1/products/{id}", api.updateProduct)
	mux.HandleFunc("DELETE /v1/products/{id}", api.deleteProduct)
	mux.HandleFunc("POST /v1/products/{id}/restore", api.restoreProduct)
	mux.HandleFunc("GET /v1/summary", api.summary)
	if cfg.Exporter != nil {
		exp := &exportHandler{svc: cfg.Exporter, defaultOwner: cfg.DefaultOwner, now: cfg.Now, logger: logger}
		mux.HandleFunc("GET /v1/export.csv", exp.serveCSV)
		mux.HandleFunc("GET /v1/export.xlsx", exp.serveXLSX)
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", common.HeaderOwner, common.HeaderRequestID},
		ExposedHeaders: []string{common.HeaderRequestID, "Content-Disposition"},
		MaxAge:         300,
	})
	return corsHandler.Handler(requestMiddleware(mux, logger)), nil
}

func (a *httpAPI) health(w http.ResponseWriter, r *http.Request) {
	if a.cfg.Ready != nil {
		if err := a.cfg.Ready(r); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *httpAPI) parse(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), a.logger)
	var req ParseTextRequest
	if err := a.decode(r, a.schemas.parse, &req); err != nil {
		writeError(w, log, err)
		return
	}
	resp, err := a.cfg.Labels.ParseText(r.Context(), &req)
	reply(w, log, http.StatusOK, resp, err)
}

func (a *httpAPI) listProducts(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), a.logger)
	qs := r.URL.Query()
	req := ListProductsRequest{
		Filter:  qs.Get("filter"),
		Search:  qs.Get("search"),
		Deleted: qs.Get("deleted") == "true",
	}
	var err error
	if req.Limit, err = intParam(qs.Get("limit")); err != nil {
		writeError(w, log, common.InvalidArgumentError("limit must be an integer"))
		return
	}
	if req.Offset, err = intParam(qs.Get("offset")); err != nil {
		writeError(w, log, common.InvalidArgumentError("offset must be an integer"))
		return
	}
	resp, err := a.cfg.Products.List(r.Context(), &req)
	reply(w, log, http.StatusOK, resp, err)
}

func (a *httpAPI) createProduct(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), a.logger)
	var req CreateProductRequest
	if err := a.decode(r, a.schemas.product, &req); err != nil {
		writeError(w, log, err)
		return
	}
	resp, err := a.cfg.Products.Create(r.Context(), &req)
	reply(w, log, http.StatusCreated, resp, err)
}

func (a *httpAPI) getProduct(w http.ResponseWriter, r *http.Request) {
	resp, err := a.cfg.Products.Get(r.Context(), &GetProductRequest{ID: r.PathValue("id")})
	reply(w, common.LoggerFromContext(r.Context(), a.logger), http.StatusOK, resp, err)
}

func (a *httpAPI) updateProduct(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), a.logger)
	var req UpdateProductRequest
	if err := a.decode(r, a.schemas.product, &req); err != nil {
		writeError(w, log, err)
		return
	}
	req.ID = r.PathValue("id")
	resp, err := a.cfg.Products.Update(r.Context(), &req)
	reply(w, log, http.StatusOK, resp, err)
}

func (a *httpAPI) deleteProduct(w http.ResponseWriter, r *http.Request) {
	resp, err := a.cfg.Products.Delete(r.Context(), &DeleteProductRequest{ID: r.PathValue("id")})
	reply(w, common.LoggerFromContext(r.Context(), a.logger), http.StatusOK, resp, err)
}

func (a *httpAPI) restoreProduct(w http.ResponseWriter, r *http.Request) {
	resp, err := a.cfg.Products.Restore(r.Context(), &RestoreProductRequest{ID: r.PathValue("id")})
	reply(w, common.LoggerFromContext(r.Context(), a.logger), http.StatusOK, resp, err)
}

func (a *httpAPI) summary(w http.ResponseWriter, r *http.Request) {
	resp, err := a.cfg.Products.Summary(r.Context(), &SummaryRequest{})
	reply(w, common.LoggerFromContext(r.Context(), a.logger), http.StatusOK, resp, err)
}

func (a *httpAPI) decode(r *http.Request, schema *jsonschema.Schema, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return common.InvalidArgumentErrorf("read body: %v", err)
	}
	if len(body) > maxBodyBytes {
		return common.InvalidArgumentError("body too large")
	}
	return decodeValid(schema, body, out)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func reply(w http.ResponseWriter, log *slog.Logger, okStatus int, resp any, err error) {
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, okStatus, resp)
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	code := common.GRPCCode(err)
	httpStatus := common.HTTPStatus(err)
	msg := err.Error()
	if s, ok := status.FromError(err); ok {
		msg = s.Message()
	}
	if code == codes.Internal || code == codes.Unknown {
		log.Error("http.request.failed", "status", httpStatus, "err", err)
		msg = "internal error"
	}
	writeJSON(w, httpStatus, errorBody{
		Error:     msg,
		Code:      code.String(),
		RequestID: w.Header().Get(common.HeaderRequestID),
	})
}

func writeJSON(w http.ResponseWriter, httpStatus int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(v)
}
