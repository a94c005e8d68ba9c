package exceptionshttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/retailhq/headoffice/internal/exceptions"
	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/reporting/export"
	"github.com/retailhq/headoffice/internal/reporting/format"
	"github.com/retailhq/headoffice/internal/shared"
)

// ExceptionService defines the report contract used by the handler.
type ExceptionService interface {
	Backdated(ctx context.Context, f reporting.DateFilter) (exceptions.BackdatedReport, error)
	VoucherDetail(ctx context.Context, f reporting.DateFilter, code string) (exceptions.VoucherRow, error)
	Ranges(ctx context.Context, f reporting.DateFilter) (exceptions.RangeReport, error)
	Refunds(ctx context.Context, f reporting.DateFilter) (exceptions.RefundReport, error)
	CreditNotes(ctx context.Context, f reporting.DateFilter) (exceptions.CreditNoteReport, error)
}

// Handler serves the exception reports as JSON or downloads.
type Handler struct {
	logger    *slog.Logger
	service   ExceptionService
	formatter *format.Formatter
	rbac      rbac.Middleware
	exportMW  func(http.Handler) http.Handler
	bufPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the exceptions HTTP handler.
func NewHandler(logger *slog.Logger, service ExceptionService, formatter *format.Formatter, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		service:   service,
		formatter: formatter,
		rbac:      guard,
		exportMW:  exportLimiter(),
		now:       time.Now,
	}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleBackdated(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "backdated-entries", h.service.Backdated, exceptions.BackdatedTable)
}

func (h *Handler) handleRanges(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "range-exceptions", h.service.Ranges, exceptions.RangeTable)
}

func (h *Handler) handleRefunds(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "refund-exceptions", h.service.Refunds, exceptions.RefundTable)
}

func (h *Handler) handleCreditNotes(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "pending-credit-notes", h.service.CreditNotes, exceptions.CreditNoteTable)
}

func (h *Handler) handleVoucher(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		httpx.RespondError(w, fmt.Errorf("%w: voucher code required", httpx.ErrValidation))
		return
	}
	voucher, err := h.service.VoucherDetail(r.Context(), filter, code)
	if err != nil {
		h.respondError(w, "voucher detail", err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucher)
}

// serve renders a report as JSON, or as a download when ?format= is present.
func serve[T any](h *Handler, w http.ResponseWriter, r *http.Request, name string,
	load func(context.Context, reporting.DateFilter) (T, error),
	table func(*format.Formatter, T) export.Table,
) {
	filter, err := h.parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	raw := r.URL.Query().Get("format")
	if raw == "" {
		report, err := load(r.Context(), filter)
		if err != nil {
			h.respondError(w, name, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
		return
	}

	if !h.rbac.Can(r, shared.PermExceptionsExport) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	f, err := export.ParseFormat(raw)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	h.exportMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, err := load(r.Context(), filter)
		if err != nil {
			h.respondError(w, name, err)
			return
		}
		h.download(w, f, export.Filename(name, filter.From, filter.To, f), table(h.formatter, report))
	})).ServeHTTP(w, r)
}

func (h *Handler) download(w http.ResponseWriter, f export.Format, filename string, t export.Table) {
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	if err := export.Write(buf, f, t); err != nil {
		h.respondError(w, "write export", err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream export", slog.Any("error", err))
	}
}

func (h *Handler) parseFilter(r *http.Request) (reporting.DateFilter, error) {
	filter, err := reporting.ParseDateFilter(r.URL.Query(), h.now())
	if err != nil {
		return filter, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return filter, nil
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	if !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, context.Canceled) {
		h.logger.Error("exceptions "+action, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
