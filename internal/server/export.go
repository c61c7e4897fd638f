package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

// Exporter renders the current product list as a download.
type Exporter interface {
	ExportCSV(ctx context.Context, q repository.ListQuery) ([]byte, error)
	ExportXLSX(ctx context.Context, q repository.ListQuery) ([]byte, error)
}

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type exportHandler struct {
	svc          Exporter
	defaultOwner string
	now          func() time.Time
	logger       *slog.Logger
}

// serveCSV handles GET /v1/export.csv?filter=&search=.
func (h *exportHandler) serveCSV(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "csv", contentTypeCSV, h.svc.ExportCSV)
}

// serveXLSX handles GET /v1/export.xlsx?filter=&search=.
func (h *exportHandler) serveXLSX(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "xlsx", contentTypeXLSX, h.svc.ExportXLSX)
}

func (h *exportHandler) serve(w http.ResponseWriter, r *http.Request, ext, contentType string,
	render func(context.Context, repository.ListQuery) ([]byte, error)) {
	ctx := r.Context()
	log := common.LoggerFromContext(ctx, h.logger)

	owner, err := ownerOf(ctx, h.defaultOwner)
	if err != nil {
		writeError(w, log, err)
		return
	}
	now := h.now()
	q, err := listQuery(owner, r.URL.Query().Get("filter"), r.URL.Query().Get("search"), 0, 0, now)
	if err != nil {
		writeError(w, log, err)
		return
	}

	body, err := render(ctx, q)
	if err != nil {
		log.Error("export."+ext+".failed", "filter", q.Filter, "err", err)
		writeError(w, log, err)
		return
	}
	name := fmt.Sprintf("products_%s.%s", now.Format("20060102"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
