package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autoprice/autoprice/internal/model"
)

// CreatePrediction inserts a history row and fills in its ID and timestamp.
func (s *Store) CreatePrediction(ctx context.Context, p *model.Prediction) error {
	p.CreatedAt = time.Now().UTC()

	query := s.db.Rebind(`INSERT INTO predictions
		(user_id, company, year, owner, fuel, seller_type, transmission,
		 km_driven, mileage_mpg, engine_cc, max_power_bhp, torque_nm, seats,
		 predicted_price, model_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		p.UserID, p.Company, p.Year, p.Owner, p.Fuel, p.SellerType, p.Transmission,
		p.KmDriven, p.MileageMPG, p.EngineCC, p.MaxPowerBHP, p.TorqueNM, p.Seats,
		p.PredictedPrice, p.ModelVersion, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// GetPrediction returns one prediction by ID, or ErrNotFound.
func (s *Store) GetPrediction(ctx context.Context, id int64) (*model.Prediction, error) {
	var p model.Prediction
	query := s.db.Rebind(`SELECT * FROM predictions WHERE id = ?`)
	if err := s.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return &p, nil
}

// ListPredictionsByUser returns the user's predictions, newest first.
func (s *Store) ListPredictionsByUser(ctx context.Context, userID int64, limit int) ([]model.Prediction, error) {
	var predictions []model.Prediction
	query := s.db.Rebind(`SELECT * FROM predictions WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &predictions, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list predictions by user: %w", err)
	}
	return predictions, nil
}

// ListPredictions returns the most recent predictions across all callers,
// newest first. Used for anonymous history requests.
func (s *Store) ListPredictions(ctx context.Context, limit int) ([]model.Prediction, error) {
	var predictions []model.Prediction
	query := s.db.Rebind(`SELECT * FROM predictions ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &predictions, query, limit); err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return predictions, nil
}

// PredictionStats returns count/avg/min/max over all stored predictions.
// An empty table yields all zeros.
func (s *Store) PredictionStats(ctx context.Context) (*model.PredictionStats, error) {
	var stats model.PredictionStats
	query := `SELECT
		COUNT(id) AS total_predictions,
		COALESCE(AVG(predicted_price), 0) AS average_price,
		COALESCE(MIN(predicted_price), 0) AS min_price,
		COALESCE(MAX(predicted_price), 0) AS max_price
	FROM predictions`
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("prediction stats: %w", err)
	}
	return &stats, nil
}
