package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"sjsage522/retroconsolas/pkg/errors"
)

// ConsoleProfile is the static search and filtering setup of one console.
// Profiles are loaded once at startup and passed by value.
type ConsoleProfile struct {
	Key           string   `yaml:"key" validate:"required"`
	DisplayName   string   `yaml:"display_name" validate:"required"`
	SearchQueries []string `yaml:"search_queries" validate:"required,min=1,dive,required"`
	ExcludeTerms  []string `yaml:"exclude_terms" validate:"dive,required"`
	MinPrice      float64  `yaml:"min_price" validate:"gte=0"`
	MaxPrice      float64  `yaml:"max_price" validate:"gtefield=MinPrice"`
}

var validate = validator.New()

// commonExcludes are accessory and merchandise words shared by every console
var commonExcludes = []string{
	"camiseta", "poster", "libro", "llavero", "pegatina", "3d", "lampara",
	"figura", "taza", "vinilo", "pin",
}

func excludes(specific ...string) []string {
	out := make([]string, 0, len(specific)+len(commonExcludes))
	out = append(out, specific...)
	return append(out, commonExcludes...)
}

// DefaultConsoles returns the built-in console table in processing order
func DefaultConsoles() []ConsoleProfile {
	return []ConsoleProfile{
		{
			Key:           "nes",
			DisplayName:   "NES",
			SearchQueries: []string{"consola NES", "Nintendo NES consola"},
			ExcludeTerms:  excludes("mini", "classic", "mando", "juego", "cartucho", "funda", "cable"),
			MinPrice:      15,
			MaxPrice:      500,
		},
		{
			Key:           "snes",
			DisplayName:   "Super Nintendo",
			SearchQueries: []string{"Super Nintendo consola", "SNES consola"},
			ExcludeTerms:  excludes("mini", "classic", "mando", "juego", "cartucho", "funda", "cable"),
			MinPrice:      20,
			MaxPrice:      600,
		},
		{
			Key:           "gameboy",
			DisplayName:   "Game Boy",
			SearchQueries: []string{"Game Boy consola", "Game Boy original", "Nintendo Game Boy"},
			ExcludeTerms:  excludes("color", "advance", "sp", "micro", "juego", "funda", "carcasa", "cartucho", "cable"),
			MinPrice:      10,
			MaxPrice:      300,
		},
		{
			Key:           "gameboy-color",
			DisplayName:   "Game Boy Color",
			SearchQueries: []string{"Game Boy Color consola", "Game Boy Color"},
			ExcludeTerms:  excludes("advance", "sp", "juego", "funda", "carcasa", "cartucho", "cable"),
			MinPrice:      15,
			MaxPrice:      350,
		},
		{
			Key:           "mastersystem",
			DisplayName:   "Master System",
			SearchQueries: []string{"Master System consola", "Sega Master System"},
			ExcludeTerms:  excludes("II", "2", "mando", "juego", "cartucho", "cable"),
			MinPrice:      15,
			MaxPrice:      400,
		},
		{
			Key:           "mastersystem-2",
			DisplayName:   "Master System II",
			SearchQueries: []string{"Master System II consola", "Master System 2 consola", "Sega Master System II"},
			ExcludeTerms:  excludes("mando", "juego", "cartucho", "cable"),
			MinPrice:      15,
			MaxPrice:      400,
		},
		{
			Key:           "megadrive",
			DisplayName:   "Mega Drive",
			SearchQueries: []string{"Mega Drive consola", "Sega Mega Drive consola"},
			ExcludeTerms:  excludes("II", "2", "mini", "mando", "juego", "cartucho", "cable"),
			MinPrice:      15,
			MaxPrice:      400,
		},
		{
			Key:           "megadrive-2",
			DisplayName:   "Mega Drive II",
			SearchQueries: []string{"Mega Drive 2 consola", "Mega Drive II consola", "Sega Mega Drive 2"},
			ExcludeTerms:  excludes("mini", "mando", "juego", "cartucho", "cable"),
			MinPrice:      15,
			MaxPrice:      400,
		},
	}
}

// consolesFile is the YAML layout of CONSOLES_FILE
type consolesFile struct {
	Consoles []ConsoleProfile `yaml:"consoles"`
}

// LoadConsoles reads an ordered console table from a YAML file
func LoadConsoles(path string) ([]ConsoleProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("read consoles file %s", path), err)
	}

	var file consolesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("parse consoles file %s", path), err)
	}

	if err := ValidateConsoles(file.Consoles); err != nil {
		return nil, err
	}
	return file.Consoles, nil
}

// ResolveConsoles returns the console table for this configuration
func (c *Config) ResolveConsoles() ([]ConsoleProfile, error) {
	if c.ConsolesFile == "" {
		return DefaultConsoles(), nil
	}
	return LoadConsoles(c.ConsolesFile)
}

// ValidateConsoles checks every profile and rejects duplicate keys
func ValidateConsoles(profiles []ConsoleProfile) error {
	if len(profiles) == 0 {
		return errors.NewConfiguration("no consoles configured", nil)
	}

	seen := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		if err := validate.Struct(p); err != nil {
			return errors.NewValidation("consoles", fmt.Sprintf("console %q is invalid", p.Key), err)
		}
		if _, dup := seen[p.Key]; dup {
			return errors.NewValidation("consoles", fmt.Sprintf("console %q is defined twice", p.Key), nil)
		}
		seen[p.Key] = struct{}{}
	}
	return nil
}
