package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dzmitryk/discountwatch/config"
	"github.com/dzmitryk/discountwatch/lib"
	"github.com/dzmitryk/discountwatch/lib/collector"
	"github.com/dzmitryk/discountwatch/lib/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service, col *collector.Collector) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc, col)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			log.Sugar().Infow("API listening", "addr", addr)
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service, col *collector.Collector) http.Handler {
	ctrl := &controller{log, svc, col}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/discounts/best", ctrl.bestDiscounts)
		r.Get("/discounts", ctrl.discountsByCategory)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", ctrl.onboardUser)
			r.Put("/{telegram_id}/city", ctrl.updateCity)
			r.Post("/{telegram_id}/subscriptions/{category}", ctrl.toggleSubscription)
			r.Get("/{telegram_id}/subscriptions", ctrl.listSubscriptions)
		})

		r.Group(func(r chi.Router) {
			if creds := cfg.GetCreds(); len(creds) > 0 {
				r.Use(middleware.BasicAuth("discountwatch", creds))
			} else {
				log.Sugar().Info("Auth is disabled since no credentials are defined")
			}
			r.Post("/collect", ctrl.collect)
			r.Delete("/stores/{store_id}", ctrl.deleteStore)
		})
	})

	return r
}

type controller struct {
	log *zap.Logger
	svc *lib.Service
	col *collector.Collector
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) rejectErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lib.ErrUnknownUser):
		ctrl.reject(w, http.StatusNotFound, err)
	case errors.Is(err, lib.ErrUnknownCategory), errors.Is(err, lib.ErrUnsupportedCity):
		ctrl.reject(w, http.StatusBadRequest, err)
	default:
		ctrl.reject(w, http.StatusInternalServerError, err)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func (ctrl *controller) bestDiscounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	city := r.URL.Query().Get("city")
	if city == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("city is required"))
		return
	}

	discounts, err := ctrl.svc.BestDiscounts(ctx, city, queryLimit(r))
	if err != nil {
		ctrl.rejectErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Discount, DiscountView](discounts))
}

func (ctrl *controller) discountsByCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	city := r.URL.Query().Get("city")
	category := r.URL.Query().Get("category")
	if city == "" || category == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("city and category are required"))
		return
	}

	discounts, err := ctrl.svc.DiscountsByCategory(ctx, city, models.Category(category), queryLimit(r))
	if err != nil {
		ctrl.rejectErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[models.Discount, DiscountView](discounts))
}

func (ctrl *controller) onboardUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telegramID, err := strconv.ParseInt(r.FormValue("telegram_id"), 10, 64)
	if err != nil || telegramID == 0 {
		ctrl.reject(w, http.StatusBadRequest, errors.New("telegram_id is required"))
		return
	}

	user, err := ctrl.svc.OnboardUser(ctx, telegramID, r.FormValue("username"), r.FormValue("first_name"))
	if err != nil {
		ctrl.rejectErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusAccepted, UserView{}.From(user))
}

func (ctrl *controller) updateCity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	city := r.FormValue("city")
	if city == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("city is required"))
		return
	}

	user, err := ctrl.svc.UpdateUserCity(ctx, parseTelegramID(r), city)
	if err != nil {
		ctrl.rejectErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, UserView{}.From(user))
}

func (ctrl *controller) toggleSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := models.Category(chi.URLParam(r, "category"))

	active, err := ctrl.svc.ToggleSubscription(ctx, parseTelegramID(r), category)
	if err != nil {
		ctrl.rejectErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"category": category,
		"active":   active,
	})
}

func (ctrl *controller) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subs, err := ctrl.svc.UserSubscriptions(ctx, parseTelegramID(r))
	if err != nil {
		ctrl.rejectErr(w, err)
		return
	}
	categories := make([]models.Category, len(subs))
	for i, sub := range subs {
		categories[i] = sub.Category
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"categories": categories})
}

// collect triggers a collection run out of band; the run outlives the
// request, so it detaches from the request context.
func (ctrl *controller) collect(w http.ResponseWriter, r *http.Request) {
	go func() {
		if _, err := ctrl.col.RunOnce(context.Background()); err != nil && !errors.Is(err, collector.ErrRunInProgress) {
			ctrl.log.Sugar().Errorw("Manual collection run failed", "err", err)
		}
	}()
	ctrl.resolve(w, http.StatusAccepted, map[string]any{"status": "accepted"})
}

func (ctrl *controller) deleteStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID, err := strconv.ParseUint(chi.URLParam(r, "store_id"), 10, 64)
	if err != nil || storeID == 0 {
		ctrl.reject(w, http.StatusBadRequest, errors.New("store_id is required"))
		return
	}

	if err := ctrl.svc.DeleteStore(ctx, uint(storeID)); err != nil {
		ctrl.rejectErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"deleted": storeID})
}

func parseTelegramID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "telegram_id"), 10, 64)
	return id
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}
