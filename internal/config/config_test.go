package config

import (
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default("Test Clinic")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Registration.DoctorCode == "" {
		t.Fatal("default config must ship a doctor code")
	}
}

func TestFromYAMLRoundTrip(t *testing.T) {
	cfg := Default("Test Clinic")
	data, err := cfg.ToYAML()
	if err != nil {
		t.Fatalf("to yaml: %v", err)
	}
	got, err := FromYAML(data)
	if err != nil {
		t.Fatalf("from yaml: %v", err)
	}
	if got.Clinic.Name != "Test Clinic" {
		t.Fatalf("clinic name lost: %q", got.Clinic.Name)
	}
	if len(got.Specialities.Catalog) != len(DefaultCatalog) {
		t.Fatalf("catalog lost: %d entries", len(got.Specialities.Catalog))
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantSub string
	}{
		{"missing clinic name", func(c *Config) { c.Clinic.Name = "" }, "clinic.name"},
		{"empty catalog", func(c *Config) { c.Specialities.Catalog = nil }, "catalog"},
		{"duplicate specialty", func(c *Config) {
			c.Specialities.Catalog = []string{"Cardiología", "Cardiología"}
		}, "twice"},
		{"mail enabled without host", func(c *Config) { c.Mail.Enabled = true }, "mail.host"},
		{"webhook without url", func(c *Config) {
			c.Webhooks = []WebhookConfig{{Events: []string{"consultation.created"}}}
		}, "url"},
	}
	for _, tc := range cases {
		cfg := Default("Test Clinic")
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantSub) {
			t.Fatalf("%s: error %q missing %q", tc.name, err, tc.wantSub)
		}
	}
}
