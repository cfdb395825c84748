package predictor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autoprice/autoprice/internal/model"
)

const testArtifact = `{
	"version": "1.0.0",
	"intercept": 500000,
	"numeric": {
		"year": {"weight": 120000, "mean": 2015, "scale": 4},
		"km_driven": {"weight": -80000, "mean": 60000, "scale": 50000},
		"max_power_bhp": {"weight": 150000, "mean": 90, "scale": 35}
	},
	"categorical": {
		"fuel": {"values": {"Diesel": 30000, "Petrol": -10000}, "default": 0},
		"transmission": {"values": {"Automatic": 60000, "Manual": -5000}, "default": 0}
	}
}`

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func newTestPredictor(t *testing.T) *Predictor {
	t.Helper()
	p, err := Load(writeArtifact(t, testArtifact))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return p
}

func validCar() model.CarFeatures {
	return model.CarFeatures{
		Company:      "Toyota",
		Year:         2019,
		Owner:        "First Owner",
		Fuel:         "Petrol",
		SellerType:   "Individual",
		Transmission: "Manual",
		KmDriven:     35000,
		MileageMPG:   22,
		EngineCC:     1498,
		MaxPowerBHP:  108,
		TorqueNM:     170,
		Seats:        5,
	}
}

func TestLoad(t *testing.T) {
	p := newTestPredictor(t)
	if p.Version() != "1.0.0" {
		t.Errorf("Version: got %q", p.Version())
	}
	info := p.Info()
	if !info.IsLoaded || info.Version != "1.0.0" || info.Path == "" {
		t.Errorf("Info: got %+v", info)
	}
}

func TestLoadRejectsBadArtifacts(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"not json", "not json at all"},
		{"missing version", `{"intercept": 1, "numeric": {"year": {"weight": 1, "mean": 0, "scale": 1}}}`},
		{"no features", `{"version": "1.0.0", "intercept": 1}`},
		{"zero scale", `{"version": "1.0.0", "numeric": {"year": {"weight": 1, "mean": 0, "scale": 0}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeArtifact(t, tc.content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validCar()); err != nil {
		t.Fatalf("valid car rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*model.CarFeatures)
		field  string
	}{
		{"missing company", func(c *model.CarFeatures) { c.Company = "" }, "company"},
		{"missing owner", func(c *model.CarFeatures) { c.Owner = "" }, "owner"},
		{"missing fuel", func(c *model.CarFeatures) { c.Fuel = "" }, "fuel"},
		{"missing seller_type", func(c *model.CarFeatures) { c.SellerType = "" }, "seller_type"},
		{"missing transmission", func(c *model.CarFeatures) { c.Transmission = "" }, "transmission"},
		{"year too old", func(c *model.CarFeatures) { c.Year = 1899 }, "year"},
		{"year in future", func(c *model.CarFeatures) { c.Year = 2031 }, "year"},
		{"negative km", func(c *model.CarFeatures) { c.KmDriven = -1 }, "km_driven"},
		{"too few seats", func(c *model.CarFeatures) { c.Seats = 1 }, "seats"},
		{"too many seats", func(c *model.CarFeatures) { c.Seats = 11 }, "seats"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			car := validCar()
			tc.mutate(&car)
			err := Validate(car)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q should mention %q", err.Error(), tc.field)
			}
		})
	}
}

func TestPredictDeterministic(t *testing.T) {
	p := newTestPredictor(t)
	car := validCar()

	first, err := p.Predict(car)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	second, err := p.Predict(car)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if first != second {
		t.Errorf("same input gave %v then %v", first, second)
	}

	// year: 120000*(2019-2015)/4 = 120000
	// km_driven: -80000*(35000-60000)/50000 = 40000
	// max_power_bhp: 150000*(108-90)/35 = 77142.857...
	// fuel Petrol: -10000, transmission Manual: -5000
	want := 500000.0 + 120000 + 40000 + 150000*18.0/35 - 10000 - 5000
	if math.Abs(first-want) > 1e-6 {
		t.Errorf("Predict: got %v, want %v", first, want)
	}
}

func TestPredictUnknownCategory(t *testing.T) {
	p := newTestPredictor(t)

	known := validCar()
	unknown := validCar()
	unknown.Fuel = "Hydrogen"

	knownPrice, err := p.Predict(known)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	unknownPrice, err := p.Predict(unknown)
	if err != nil {
		t.Fatalf("Predict unknown fuel: %v", err)
	}
	// Petrol carries -10000; the unseen value falls back to default 0.
	if math.Abs((unknownPrice-knownPrice)-10000) > 1e-6 {
		t.Errorf("unknown category delta: got %v, want 10000", unknownPrice-knownPrice)
	}
}

func TestPredictClampsNegative(t *testing.T) {
	artifact := `{
		"version": "1.0.0",
		"intercept": -100000,
		"numeric": {"year": {"weight": 0, "mean": 2015, "scale": 1}}
	}`
	p, err := Load(writeArtifact(t, artifact))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	price, err := p.Predict(validCar())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if price != 0 {
		t.Errorf("negative score should clamp to 0, got %v", price)
	}
}

func TestPredictInvalidInput(t *testing.T) {
	p := newTestPredictor(t)
	car := validCar()
	car.Year = 1800
	if _, err := p.Predict(car); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCacheKeyStable(t *testing.T) {
	car := validCar()
	key := CacheKey(car)

	if !strings.HasPrefix(key, "prediction:") {
		t.Errorf("key %q should have prediction: prefix", key)
	}
	if key != CacheKey(car) {
		t.Error("same features should yield same key")
	}

	other := validCar()
	other.KmDriven = 36000
	if CacheKey(other) == key {
		t.Error("different features should yield different keys")
	}
}
