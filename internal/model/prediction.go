package model

import "time"

// CarFeatures is the feature vector submitted for a price estimate.
type CarFeatures struct {
	Company      string  `json:"company"`
	Year         int     `json:"year"`
	Owner        string  `json:"owner"`
	Fuel         string  `json:"fuel"`
	SellerType   string  `json:"seller_type"`
	Transmission string  `json:"transmission"`
	KmDriven     float64 `json:"km_driven"`
	MileageMPG   float64 `json:"mileage_mpg"`
	EngineCC     float64 `json:"engine_cc"`
	MaxPowerBHP  float64 `json:"max_power_bhp"`
	TorqueNM     float64 `json:"torque_nm"`
	Seats        float64 `json:"seats"`
}

// Prediction is one row of prediction history: the submitted features, the
// estimated price, and the model version that produced it. UserID is nil for
// predictions made by anonymous (API-key only) callers.
type Prediction struct {
	ID             int64     `json:"id" db:"id"`
	UserID         *int64    `json:"user_id,omitempty" db:"user_id"`
	Company        string    `json:"company" db:"company"`
	Year           int       `json:"year" db:"year"`
	Owner          string    `json:"owner" db:"owner"`
	Fuel           string    `json:"fuel" db:"fuel"`
	SellerType     string    `json:"seller_type" db:"seller_type"`
	Transmission   string    `json:"transmission" db:"transmission"`
	KmDriven       int64     `json:"km_driven" db:"km_driven"`
	MileageMPG     float64   `json:"mileage_mpg" db:"mileage_mpg"`
	EngineCC       int64     `json:"engine_cc" db:"engine_cc"`
	MaxPowerBHP    float64   `json:"max_power_bhp" db:"max_power_bhp"`
	TorqueNM       float64   `json:"torque_nm" db:"torque_nm"`
	Seats          int64     `json:"seats" db:"seats"`
	PredictedPrice float64   `json:"predicted_price" db:"predicted_price"`
	ModelVersion   string    `json:"model_version" db:"model_version"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// PredictionStats summarizes the stored prediction history.
type PredictionStats struct {
	TotalPredictions int64   `json:"total_predictions" db:"total_predictions"`
	AveragePrice     float64 `json:"average_price" db:"average_price"`
	MinPrice         float64 `json:"min_price" db:"min_price"`
	MaxPrice         float64 `json:"max_price" db:"max_price"`
}
