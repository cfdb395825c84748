// Package predictor serves price estimates from a pre-trained regression
// artifact. The artifact is a JSON file exported by the offline training
// pipeline: an intercept, standardized weights for numeric features, and
// per-category weights for categorical features.
package predictor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/autoprice/autoprice/internal/model"
)

// ErrInvalidInput marks feature-validation failures. Handlers map it to a
// 422 response.
var ErrInvalidInput = errors.New("invalid input")

// numericFeature is one standardized regression term: weight * (x-mean)/scale.
type numericFeature struct {
	Weight float64 `json:"weight"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

// categoricalFeature maps category values to weights. Unseen values fall
// back to Default, the equivalent of an all-zeros one-hot row.
type categoricalFeature struct {
	Values  map[string]float64 `json:"values"`
	Default float64            `json:"default"`
}

// artifact is the on-disk model format.
type artifact struct {
	Version     string                        `json:"version"`
	Intercept   float64                       `json:"intercept"`
	Numeric     map[string]numericFeature     `json:"numeric"`
	Categorical map[string]categoricalFeature `json:"categorical"`
}

// Info describes the loaded model.
type Info struct {
	Version  string `json:"version"`
	Path     string `json:"path"`
	IsLoaded bool   `json:"is_loaded"`
}

// Predictor scores car features against the loaded artifact. It is immutable
// after Load and safe for concurrent use.
type Predictor struct {
	art  artifact
	path string
}

// Load reads and validates a model artifact from path.
func Load(path string) (*Predictor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}
	if art.Version == "" {
		return nil, fmt.Errorf("model artifact %s: missing version", path)
	}
	if len(art.Numeric) == 0 && len(art.Categorical) == 0 {
		return nil, fmt.Errorf("model artifact %s: no features", path)
	}
	for name, f := range art.Numeric {
		if f.Scale == 0 {
			return nil, fmt.Errorf("model artifact %s: numeric feature %q has zero scale", path, name)
		}
	}

	return &Predictor{art: art, path: path}, nil
}

// Version returns the model version embedded in the artifact.
func (p *Predictor) Version() string {
	return p.art.Version
}

// Info returns metadata about the loaded model.
func (p *Predictor) Info() Info {
	return Info{Version: p.art.Version, Path: p.path, IsLoaded: true}
}

// Validate checks the feature vector before scoring. Failures wrap
// ErrInvalidInput and carry a client-safe message.
func Validate(car model.CarFeatures) error {
	required := map[string]string{
		"company":      car.Company,
		"owner":        car.Owner,
		"fuel":         car.Fuel,
		"seller_type":  car.SellerType,
		"transmission": car.Transmission,
	}
	for field, val := range required {
		if val == "" {
			return fmt.Errorf("%w: missing required field %q", ErrInvalidInput, field)
		}
	}

	if car.Year < 1900 || car.Year > 2030 {
		return fmt.Errorf("%w: invalid year %d, must be between 1900 and 2030", ErrInvalidInput, car.Year)
	}
	if car.KmDriven < 0 {
		return fmt.Errorf("%w: invalid km_driven %.0f, cannot be negative", ErrInvalidInput, car.KmDriven)
	}
	if car.Seats < 2 || car.Seats > 10 {
		return fmt.Errorf("%w: invalid seats %.0f, must be between 2 and 10", ErrInvalidInput, car.Seats)
	}
	return nil
}

// Predict validates the features and returns the estimated price.
func (p *Predictor) Predict(car model.CarFeatures) (float64, error) {
	if err := Validate(car); err != nil {
		return 0, err
	}

	price := p.art.Intercept

	numeric := map[string]float64{
		"year":          float64(car.Year),
		"km_driven":     car.KmDriven,
		"mileage_mpg":   car.MileageMPG,
		"engine_cc":     car.EngineCC,
		"max_power_bhp": car.MaxPowerBHP,
		"torque_nm":     car.TorqueNM,
		"seats":         car.Seats,
	}
	for name, f := range p.art.Numeric {
		x, ok := numeric[name]
		if !ok {
			continue
		}
		price += f.Weight * (x - f.Mean) / f.Scale
	}

	categorical := map[string]string{
		"company":      car.Company,
		"owner":        car.Owner,
		"fuel":         car.Fuel,
		"seller_type":  car.SellerType,
		"transmission": car.Transmission,
	}
	for name, f := range p.art.Categorical {
		val, ok := categorical[name]
		if !ok {
			continue
		}
		if w, ok := f.Values[val]; ok {
			price += w
		} else {
			price += f.Default
		}
	}

	if price < 0 {
		price = 0
	}
	return price, nil
}

// CacheKey derives a deterministic cache key from the feature vector: the
// SHA-256 of its canonical JSON encoding. Map keys marshal sorted, so feature
// order cannot change the key.
func CacheKey(car model.CarFeatures) string {
	canonical := map[string]any{
		"company":       car.Company,
		"year":          car.Year,
		"owner":         car.Owner,
		"fuel":          car.Fuel,
		"seller_type":   car.SellerType,
		"transmission":  car.Transmission,
		"km_driven":     car.KmDriven,
		"mileage_mpg":   car.MileageMPG,
		"engine_cc":     car.EngineCC,
		"max_power_bhp": car.MaxPowerBHP,
		"torque_nm":     car.TorqueNM,
		"seats":         car.Seats,
	}
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return "prediction:" + hex.EncodeToString(sum[:])
}
