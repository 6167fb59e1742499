package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

// Checkouter is the checkout entry point shared by the HTTP and gRPC surfaces.
type Checkouter interface {
	Checkout(ctx context.Context, basketID int64) (*domain.CheckoutReceipt, error)
}

// WithCheckoutTimeout bounds every checkout call, lock wait included. A
// non-positive d returns c unchanged.
func WithCheckoutTimeout(c Checkouter, d time.Duration) Checkouter {
	if d <= 0 {
		return c
	}
	return timeoutCheckouter{next: c, timeout: d}
}

type timeoutCheckouter struct {
	next    Checkouter
	timeout time.Duration
}

func (t timeoutCheckouter) Checkout(ctx context.Context, basketID int64) (*domain.CheckoutReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Checkout(ctx, basketID)
}

type BasketCrud interface {
	port.CrudService[domain.Basket, domain.BasketInput]
	Contents(ctx context.Context, id int64) ([]domain.BasketContent, error)
}

type Services struct {
	Users          port.CrudService[domain.User, domain.UserInput]
	Items          port.CrudService[domain.Item, domain.ItemInput]
	Baskets        BasketCrud
	BasketContents port.CrudService[domain.BasketContent, domain.BasketContentInput]
	Checkout       Checkouter
}

type HTTPHandler struct {
	svc    Services
	logger zerolog.Logger
}

func NewHTTPHandler(svc Services, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// NewRouter mounts every route of the basket API.
func NewRouter(h *HTTPHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(h.logger))

	r.Get("/health", h.HealthCheck)

	mountCrud[domain.User, domain.UserInput, UserRequest](r, h, "/users", h.svc.Users, userResponse)
	mountCrud[domain.Item, domain.ItemInput, ItemRequest](r, h, "/items", h.svc.Items, itemResponse)
	mountCrud[domain.Basket, domain.BasketInput, BasketRequest](r, h, "/baskets", h.svc.Baskets, basketResponse,
		func(r chi.Router) {
			r.Get("/{id}/contents", h.BasketContents)
			r.Post("/checkout/{id}", h.Checkout)
		})
	mountCrud[domain.BasketContent, domain.BasketContentInput, BasketContentRequest](r, h, "/basket-contents", h.svc.BasketContents, basketContentResponse)
	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	receipt, err := h.svc.Checkout.Checkout(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *HTTPHandler) BasketContents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	contents, err := h.svc.Baskets.Contents(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, present(contents, basketContentResponse))
}

type requestBody[In any] interface {
	input() In
}

// mountCrud registers list, get, create, update and delete for one entity,
// plus any extra routes under the same prefix.
func mountCrud[E, In any, Req requestBody[In], Resp any](r chi.Router, h *HTTPHandler, path string, svc port.CrudService[E, In], toResp func(E) Resp, extra ...func(chi.Router)) {
	r.Route(path, func(r chi.Router) {
		for _, fn := range extra {
			fn(r)
		}

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			all, err := svc.GetAll(r.Context())
			if err != nil {
				h.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, present(all, toResp))
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			e, err := svc.Get(r.Context(), id)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, toResp(*e))
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req Req
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				h.fail(w, r, domain.InvalidInput("invalid request body"))
				return
			}
			id, err := svc.Add(r.Context(), req.input())
			if err != nil {
				h.fail(w, r, err)
				return
			}
			e, err := svc.Get(r.Context(), id)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			w.Header().Set("Location", fmt.Sprintf("%s/%d", path, id))
			writeJSON(w, http.StatusCreated, toResp(*e))
		})

		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			var req Req
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				h.fail(w, r, domain.InvalidInput("invalid request body"))
				return
			}
			if err := svc.Update(r.Context(), id, req.input()); err != nil {
				h.fail(w, r, err)
				return
			}
			e, err := svc.Get(r.Context(), id)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, toResp(*e))
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			if err := svc.Delete(r.Context(), id); err != nil {
				h.fail(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

func present[E, Resp any](all []E, toResp func(E) Resp) []Resp {
	out := make([]Resp, 0, len(all))
	for _, e := range all {
		out = append(out, toResp(e))
	}
	return out
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.InvalidInput(domain.MsgIDNotProvided)
	}
	return id, nil
}

func httpStatus(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAlreadyCheckedOut:
		return http.StatusConflict
	case domain.KindInsufficientQuantity, domain.KindCostTooLow, domain.KindCostTooHigh, domain.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		h.logger.Error().Err(err).
			Str("request_id", RequestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeJSON(w, httpStatus(kind), errorResponse{Kind: string(kind), Message: domain.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
