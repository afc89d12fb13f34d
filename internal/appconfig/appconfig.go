// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout bounds a single embedding request.
	defaultRequestTimeout = 60 * time.Second
	// defaultTopK is the number of chunks returned by the semantic fallback.
	defaultTopK = 3
)

// Config represents the top-level application configuration.
type Config struct {
	Debug   bool   `json:"debug"`
	LogFile string `json:"logFile,omitempty"`

	DistrictsPath      string            `json:"districtsPath" validate:"required"`
	DistrictNameFields []string          `json:"districtNameFields,omitempty"`
	DEMPath            string            `json:"demPath" validate:"required"`
	LULCPath           string            `json:"lulcPath" validate:"required"`
	DEMNoData          *float64          `json:"demNoData,omitempty"`
	LULCNoData         *float64          `json:"lulcNoData,omitempty"`
	RasterEPSG         int               `json:"rasterEPSG,omitempty"`
	LULCClasses        map[string]string `json:"lulcClasses,omitempty"`
	DistrictDataPath   string            `json:"districtDataPath" validate:"required"`

	DocsPath          string   `json:"docsPath" validate:"required"`
	DocExtensions     []string `json:"docExtensions,omitempty"`
	IndexBackend      string   `json:"indexBackend" validate:"oneof=file pgvector"`
	IndexPath         string   `json:"indexPath" validate:"required_if=IndexBackend file"`
	PostgresDSN       string   `json:"postgresDSN,omitempty" validate:"required_if=IndexBackend pgvector"`
	EmbeddingProvider string   `json:"embeddingProvider" validate:"oneof=ollama gemini"`
	EmbeddingHost     string   `json:"embeddingHost,omitempty" validate:"required_if=EmbeddingProvider ollama"`
	EmbeddingModel    string   `json:"embeddingModel" validate:"required"`
	GeminiAPIKey      string   `json:"geminiAPIKey,omitempty"`
	Tokenizer         string   `json:"tokenizer,omitempty" validate:"omitempty,oneof=words tiktoken"`
	ChunkSize         int      `json:"chunkSize" validate:"gt=0"`
	ChunkOverlap      int      `json:"chunkOverlap" validate:"gte=0,ltfield=ChunkSize"`
	TopK              int      `json:"topK,omitempty" validate:"gte=0"`
	TimeoutSeconds    int      `json:"timeoutSeconds,omitempty"`

	ServerAddr string `json:"serverAddr,omitempty"`

	ConfigPath string `json:"-"`
}

// Default returns the configuration used when no file or flag overrides a key.
// Paths mirror the data layout the pipeline has always used.
func Default() Config {
	return Config{
		LogFile:            "geoassist.log",
		DistrictsPath:      "data/tamilnadu_districts.geojson",
		DistrictNameFields: []string{"dtname", "DISTRICT"},
		DEMPath:            "data/dem/dem_tamilnadu.tif",
		LULCPath:           "data/lulc/LULC_2005.tif",
		LULCClasses:        DefaultLULCClasses(),
		DistrictDataPath:   "data/district_data.json",
		DocsPath:           "docs",
		DocExtensions:      []string{".txt"},
		IndexBackend:       "file",
		IndexPath:          "index/docs.jsonl",
		EmbeddingProvider:  "ollama",
		EmbeddingHost:      "http://localhost:11434",
		EmbeddingModel:     "all-minilm",
		Tokenizer:          "words",
		ChunkSize:          1000,
		ChunkOverlap:       200,
		TopK:               defaultTopK,
		TimeoutSeconds:     int(defaultRequestTimeout.Seconds()),
		ServerAddr:         ":8080",
	}
}

// DefaultLULCClasses is the raster value to class name table of the LULC 2005 product.
func DefaultLULCClasses() map[string]string {
	return map[string]string{
		"1": "Agricultural Land",
		"2": "Forest",
		"3": "Water Body",
		"4": "Built-up Area",
		"5": "Wasteland",
		"6": "Others",
	}
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetrievalTopK returns the configured number of semantic results.
func (c Config) RetrievalTopK() int {
	if c.TopK <= 0 {
		return defaultTopK
	}
	return c.TopK
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "geoassist.log"
}

// ClassTable converts the string-keyed LULC table into raster codes. Keys that
// are not integers are rejected so a typo cannot silently drop a class.
func (c Config) ClassTable() (map[int]string, error) {
	src := c.LULCClasses
	if len(src) == 0 {
		src = DefaultLULCClasses()
	}
	table := make(map[int]string, len(src))
	for key, name := range src {
		code, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("lulcClasses key %q is not an integer raster value", key)
		}
		table[code] = name
	}
	return table, nil
}

// NameFields returns the attribute columns tried, in order, for a district name.
func (c Config) NameFields() []string {
	if len(c.DistrictNameFields) == 0 {
		return []string{"dtname", "DISTRICT"}
	}
	return c.DistrictNameFields
}

// Validate checks the struct tags and returns a single error listing every
// failing field, sorted for stable output.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", e.Field(), e.Tag()))
		}
		sort.Strings(msgs)
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	if _, err := c.ClassTable(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Keys lists every configuration key, as spelled in the config file. Viper
// needs them up front to resolve GEOASSIST_* environment variables.
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		keys = append(keys, name)
	}
	return keys
}

// DefaultSettings is Default keyed by config file name, for seeding viper
// defaults so that unset flags never blank a configured value.
func DefaultSettings() map[string]any {
	data, err := json.Marshal(Default())
	if err != nil {
		return nil
	}
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil
	}
	return settings
}

// Load reads a JSON configuration file layered over Default and validates it.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("no configuration file found at %q", path)
		}
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, fmt.Errorf("could not parse config file %q: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	config.ConfigPath = path
	return config, nil
}
