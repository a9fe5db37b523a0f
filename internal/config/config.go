package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models clinic.yml.
type Config struct {
	Clinic struct {
		Name string `yaml:"name"`
	} `yaml:"clinic"`
	Specialities struct {
		// Catalog seeds the immutable specialty taxonomy on bootstrap.
		Catalog []string `yaml:"catalog"`
	} `yaml:"specialities"`
	Registration struct {
		// DoctorCode is the clinic-issued code a doctor must present to
		// register with a doctor account.
		DoctorCode string `yaml:"doctor_code"`
	} `yaml:"registration"`
	Mail     Mail            `yaml:"mail"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// Mail holds SMTP settings for registration mail.
type Mail struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// DefaultCatalog is the seed specialty taxonomy, matching the clinic's
// reference data.
var DefaultCatalog = []string{
	"Cardiología",
	"Dermatología",
	"Endocrinología",
	"Gastroenterología",
	"Geriatría",
	"Ginecología",
	"Hematología",
	"Infectología",
	"Medicina interna",
	"Nefrología",
	"Neumología",
	"Neurología",
	"Oftalmología",
	"Oncología",
	"Pediatría",
	"Psiquiatría",
	"Reumatología",
	"Traumatología",
	"Urología",
	"Otorrinolaringología",
}

// Default returns a usable config for a fresh workspace.
func Default(clinicName string) *Config {
	cfg := &Config{}
	cfg.Clinic.Name = clinicName
	cfg.Specialities.Catalog = append([]string(nil), DefaultCatalog...)
	cfg.Registration.DoctorCode = "1234"
	cfg.Mail.Port = 587
	return cfg
}

// Path returns the clinic.yml path for the workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".teleconsult", "clinic.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run tc init first", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates a config document.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ToYAML renders the config for writing back to disk.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Clinic.Name == "" {
		return fmt.Errorf("config.clinic.name is required")
	}
	if len(c.Specialities.Catalog) == 0 {
		return fmt.Errorf("config.specialities.catalog must list at least one specialty")
	}
	seen := map[string]bool{}
	for _, name := range c.Specialities.Catalog {
		if name == "" {
			return fmt.Errorf("config.specialities.catalog contains an empty name")
		}
		if seen[name] {
			return fmt.Errorf("config.specialities.catalog lists %s twice", name)
		}
		seen[name] = true
	}
	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			return fmt.Errorf("config.mail.host is required when mail is enabled")
		}
		if c.Mail.Port <= 0 {
			return fmt.Errorf("config.mail.port must be positive")
		}
		if c.Mail.From == "" {
			return fmt.Errorf("config.mail.from is required when mail is enabled")
		}
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}
