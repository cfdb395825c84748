package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/autoprice/autoprice/internal/cache"
	"github.com/autoprice/autoprice/internal/model"
	"github.com/autoprice/autoprice/internal/predictor"
	"github.com/autoprice/autoprice/internal/server/middleware"
	"github.com/autoprice/autoprice/internal/store"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// PredictHandler serves price estimates and prediction history.
type PredictHandler struct {
	store     *store.Store
	cache     cache.Cache
	predictor *predictor.Predictor
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// NewPredictHandler creates a PredictHandler. cacheTTL bounds how long a
// computed estimate is reused for identical inputs.
func NewPredictHandler(st *store.Store, c cache.Cache, p *predictor.Predictor, cacheTTL time.Duration, logger *slog.Logger) *PredictHandler {
	return &PredictHandler{
		store:     st,
		cache:     c,
		predictor: p,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Predict estimates a price for the submitted features and persists the
// result to history. Identical feature vectors within the cache TTL reuse
// the cached estimate; the history row is written either way.
// POST /api/v1/predict
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var car model.CarFeatures
	if err := readJSON(r, &car); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	if err := predictor.Validate(car); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	key := predictor.CacheKey(car)
	price, hit, err := h.cache.GetFloat(r.Context(), key)
	if err != nil {
		// Degrade to a cold computation when the cache is unreachable.
		h.logger.Warn("prediction cache read failed", "error", err)
		hit = false
	}

	if !hit {
		price, err = h.predictor.Predict(car)
		if err != nil {
			if errors.Is(err, predictor.ErrInvalidInput) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			h.logger.Error("prediction failed", "error", err)
			writeError(w, http.StatusInternalServerError, "prediction failed")
			return
		}
		if err := h.cache.SetFloat(r.Context(), key, price, h.cacheTTL); err != nil {
			h.logger.Warn("prediction cache write failed", "error", err)
		}
	}

	p := &model.Prediction{
		Company:        car.Company,
		Year:           car.Year,
		Owner:          car.Owner,
		Fuel:           car.Fuel,
		SellerType:     car.SellerType,
		Transmission:   car.Transmission,
		KmDriven:       int64(car.KmDriven),
		MileageMPG:     car.MileageMPG,
		EngineCC:       int64(car.EngineCC),
		MaxPowerBHP:    car.MaxPowerBHP,
		TorqueNM:       car.TorqueNM,
		Seats:          int64(car.Seats),
		PredictedPrice: price,
		ModelVersion:   h.predictor.Version(),
	}
	if identity := middleware.GetIdentity(r.Context()); identity != nil {
		p.UserID = &identity.UserID
	}

	if err := h.store.CreatePrediction(r.Context(), p); err != nil {
		h.logger.Error("save prediction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save prediction")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"predicted_price": price,
		"prediction_id":   p.ID,
		"model_version":   p.ModelVersion,
		"cache_hit":       hit,
		"saved_at":        p.CreatedAt,
	})
}

// History returns recent predictions: the caller's own when authenticated,
// the most recent across all callers for anonymous (API-key only) requests.
// GET /api/v1/predictions/history?limit=N
func (h *PredictHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(queryInt(r, "limit", defaultHistoryLimit), 1, maxHistoryLimit)

	var (
		predictions []model.Prediction
		err         error
	)
	if identity := middleware.GetIdentity(r.Context()); identity != nil {
		predictions, err = h.store.ListPredictionsByUser(r.Context(), identity.UserID, limit)
	} else {
		predictions, err = h.store.ListPredictions(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("list predictions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	if predictions == nil {
		predictions = []model.Prediction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":       len(predictions),
		"predictions": predictions,
	})
}

// Detail returns one prediction by ID.
// GET /api/v1/predictions/{predictionID}
func (h *PredictHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "predictionID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prediction id")
		return
	}

	p, err := h.store.GetPrediction(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "prediction not found")
			return
		}
		h.logger.Error("get prediction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load prediction")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Stats returns summary statistics over stored predictions.
// GET /api/v1/predictions/stats/summary
func (h *PredictHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.PredictionStats(r.Context())
	if err != nil {
		h.logger.Error("prediction stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ModelInfo returns metadata about the loaded model.
// GET /api/v1/model
func (h *PredictHandler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.predictor.Info())
}
