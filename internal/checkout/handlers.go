package checkout

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/pos-checkout/internal/catalog"
	"github.com/noah-isme/pos-checkout/internal/common"
	"github.com/noah-isme/pos-checkout/internal/display"
	"github.com/noah-isme/pos-checkout/internal/obs"
	"github.com/noah-isme/pos-checkout/internal/pricing"
)

var tracer = otel.Tracer("checkout.Handler")

// Handler exposes a register lane over HTTP.
type Handler struct {
	Svc       *Checkout
	Catalogs  catalog.Source
	Publisher catalog.Publisher
	Logger    zerolog.Logger
	Validate  *validator.Validate
}

type scanRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type resetRequest struct {
	Catalog string `json:"catalog" validate:"omitempty,max=64"`
}

type scanResponse struct {
	CartID    string        `json:"cartId"`
	Code      string        `json:"code"`
	Quantity  int           `json:"quantity"`
	Total     pricing.Money `json:"total"`
	Formatted string        `json:"formatted"`
}

type totalResponse struct {
	CartID    string        `json:"cartId"`
	Total     pricing.Money `json:"total"`
	Formatted string        `json:"formatted"`
	Currency  string        `json:"currency"`
	Items     []string      `json:"items"`
}

type receiptLine struct {
	Code     string        `json:"code"`
	Quantity int           `json:"quantity"`
	Amount   pricing.Money `json:"amount"`
	Baseline pricing.Money `json:"baseline"`
	Savings  pricing.Money `json:"savings"`
	Rule     string        `json:"rule"`
}

type receiptResponse struct {
	CartID    string        `json:"cartId"`
	Lines     []receiptLine `json:"lines"`
	Subtotal  pricing.Money `json:"subtotal"`
	Discount  pricing.Money `json:"discount"`
	Total     pricing.Money `json:"total"`
	Formatted string        `json:"formatted"`
}

// Routes mounts the register lane endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/scan", h.Scan)
	r.Get("/total", h.Total)
	r.Get("/receipt", h.Receipt)
	r.Post("/reset", h.Reset)
	r.Put("/catalogs/{name}", h.PutCatalog)
}

// Scan adds one item to the cart.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	_, span := tracer.Start(r.Context(), "checkout.scan")
	defer span.End()

	var payload scanRequest
	if err := h.decode(r, &payload); err != nil {
		span.RecordError(err)
		obs.ObserveScan("bad_request")
		h.writeError(w, err)
		return
	}
	code := strings.TrimSpace(payload.Code)
	span.SetAttributes(attribute.String("checkout.code", code))

	rec, err := h.Svc.ScanReceipt(code)
	if err != nil {
		obs.ObserveScan("not_found")
		h.writeError(w, err)
		return
	}
	obs.ObserveScan("ok")

	span.SetAttributes(attribute.String("checkout.cart_id", rec.CartID))
	common.Data(w, http.StatusOK, scanResponse{
		CartID:    rec.CartID,
		Code:      code,
		Quantity:  rec.Quantity(code),
		Total:     rec.Summary.Total,
		Formatted: display.NewFormatter(rec.Catalog).Format(rec.Summary.Total),
	})
}

// Total reports the cart total.
func (h *Handler) Total(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	_, span := tracer.Start(r.Context(), "checkout.total")
	defer span.End()

	rec := h.Svc.Receipt()
	obs.ObserveTotal(int64(rec.Summary.Total))
	span.SetAttributes(
		attribute.String("checkout.cart_id", rec.CartID),
		attribute.Int64("checkout.total", int64(rec.Summary.Total)),
	)
	f := display.NewFormatter(rec.Catalog)
	common.Data(w, http.StatusOK, totalResponse{
		CartID:    rec.CartID,
		Total:     rec.Summary.Total,
		Formatted: f.Format(rec.Summary.Total),
		Currency:  f.Options.Currency,
		Items:     rec.Scanned,
	})
}

// Receipt reports the per-item breakdown with the rule that priced each line.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	_, span := tracer.Start(r.Context(), "checkout.receipt")
	defer span.End()

	rec := h.Svc.Receipt()
	lines := make([]receiptLine, 0, len(rec.Lines))
	for _, l := range rec.Lines {
		lines = append(lines, receiptLine{
			Code:     l.Code,
			Quantity: l.Quote.Quantity,
			Amount:   l.Quote.Amount,
			Baseline: l.Quote.Baseline,
			Savings:  l.Quote.Savings(),
			Rule:     l.Quote.Rule,
		})
	}
	span.SetAttributes(attribute.Int("checkout.lines", len(lines)))
	common.Data(w, http.StatusOK, receiptResponse{
		CartID:    rec.CartID,
		Lines:     lines,
		Subtotal:  rec.Summary.Subtotal,
		Discount:  rec.Summary.Discount,
		Total:     rec.Summary.Total,
		Formatted: display.NewFormatter(rec.Catalog).Format(rec.Summary.Total),
	})
}

// Reset empties the cart, optionally switching to a named catalog.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	ctx, span := tracer.Start(r.Context(), "checkout.reset")
	defer span.End()

	var payload resetRequest
	if err := h.decode(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		span.RecordError(err)
		h.writeError(w, err)
		return
	}
	name := strings.TrimSpace(payload.Catalog)

	var next *catalog.Catalog
	if name != "" {
		span.SetAttributes(attribute.String("checkout.catalog", name))
		if h.Catalogs == nil {
			common.JSONError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "catalog lookup not configured", nil)
			return
		}
		c, err := h.Catalogs.Get(ctx, name)
		if err != nil {
			span.RecordError(err)
			h.writeError(w, err)
			return
		}
		next = c
	}
	if err := h.Svc.Reset(next); err != nil {
		span.RecordError(err)
		h.writeError(w, err)
		return
	}
	label := name
	if label == "" {
		label = "current"
	}
	obs.ObserveReset(label)
	cartID := h.Svc.CartID()
	h.Logger.Info().Str("cart_id", cartID).Str("catalog", label).Msg("cart reset")
	common.Data(w, http.StatusOK, map[string]string{"cartId": cartID})
}

// PutCatalog validates and publishes a catalog document under a name.
func (h *Handler) PutCatalog(w http.ResponseWriter, r *http.Request) {
	if h.Publisher == nil {
		common.JSONError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "catalog publishing not configured", nil)
		return
	}
	ctx, span := tracer.Start(r.Context(), "checkout.put_catalog")
	defer span.End()

	name := chi.URLParam(r, "name")
	span.SetAttributes(attribute.String("checkout.catalog", name))
	outcome := "error"
	defer func() { obs.ObservePublish(outcome) }()

	if !catalog.ValidName(name) {
		outcome = "invalid"
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid catalog name", map[string]string{"name": name})
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		span.RecordError(err)
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read payload", nil)
		return
	}
	if err := h.Publisher.Put(ctx, name, raw); err != nil {
		span.RecordError(err)
		if errors.Is(err, catalog.ErrSchema) || errors.Is(err, catalog.ErrNegativeValue) {
			outcome = "invalid"
		} else {
			span.SetStatus(codes.Error, "publish failed")
			h.Logger.Error().Err(err).Str("catalog", name).Msg("catalog publish failed")
		}
		h.writeError(w, err)
		return
	}
	outcome = "ok"
	h.Logger.Info().Str("catalog", name).Int("bytes", len(raw)).Msg("catalog published")
	common.Data(w, http.StatusOK, map[string]string{"catalog": name})
}

// IdempotencyScope groups Idempotency-Key values. Scans are scoped to the
// current cart. Reset replaces the cart id, so resets and catalog publishes
// share one lane-wide scope and a retried reset is still caught.
func (h *Handler) IdempotencyScope(r *http.Request) string {
	if r.Method == http.MethodPut || strings.HasSuffix(r.URL.Path, "/reset") {
		return "lane"
	}
	if h.Svc == nil {
		return ""
	}
	return h.Svc.CartID()
}

func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	v := h.Validate
	if v == nil {
		v = defaultValidator
	}
	if err := v.Struct(dst); err != nil {
		return common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err).
			WithDetails(fieldErrors(err))
	}
	return nil
}

var defaultValidator = validator.New()

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		nf     *NotFoundError
		negErr *catalog.NegativeValueError
		schErr *catalog.SchemaError
	)
	switch {
	case err == nil:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
	case errors.Is(err, io.EOF):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "request body required", nil)
	case errors.As(err, &nf):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", map[string]string{"code": nf.Code})
	case errors.Is(err, catalog.ErrCatalogNotFound):
		common.JSONError(w, http.StatusNotFound, "CATALOG_NOT_FOUND", "catalog not found", nil)
	case errors.As(err, &negErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CATALOG", "negative value in catalog", map[string]string{"path": negErr.Path})
	case errors.As(err, &schErr):
		details := map[string]string{"reason": schErr.Reason}
		if schErr.Path != "" {
			details["path"] = schErr.Path
		}
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CATALOG", "catalog does not match schema", details)
	case common.IsAppError(err):
		common.WriteError(w, err)
	default:
		h.Logger.Error().Err(err).Msg("checkout request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
