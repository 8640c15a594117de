// Package config loads the application configuration: where the
// coefficient dataset lives and the defaults applied to requests.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	"cauldron-optimizer/internal/coeff"
	"cauldron-optimizer/internal/optimizer"
	"cauldron-optimizer/internal/service"
)

// ErrNoDataSource is returned when no dataset source is configured.
var ErrNoDataSource = errors.New("no coefficient dataset configured")

// Environment variables read by ApplyEnv.
const (
	EnvData      = "CAULDRON_DATA"
	EnvS3Bucket  = "CAULDRON_S3_BUCKET"
	EnvS3Key     = "CAULDRON_S3_KEY"
	EnvS3Version = "CAULDRON_S3_VERSION"
	EnvS3Region  = "CAULDRON_S3_REGION"
	EnvStarts    = "CAULDRON_STARTS"
	EnvWorkers   = "CAULDRON_WORKERS"
)

// Config is the application configuration.
type Config struct {
	// Data says where to load the coefficient dataset from.
	Data DataSource `json:"data"`

	// Defaults fills request fields the caller leaves unset.
	Defaults Defaults `json:"defaults"`

	// Search holds the optimizer tuning parameters.
	Search Search `json:"search"`
}

// DataSource is a local dataset, a pair of CSV matrices or a versioned S3
// object. S3 wins over Path, which wins over CSV.
type DataSource struct {
	Path string   `json:"path,omitempty"`
	CSV  CSVPair  `json:"csv,omitempty"`
	S3   S3Object `json:"s3,omitempty"`
}

// CSVPair names the B and V matrix files.
type CSVPair struct {
	B string `json:"b,omitempty"`
	V string `json:"v,omitempty"`
}

// S3Object names one object version.
type S3Object struct {
	Bucket  string `json:"bucket,omitempty"`
	Key     string `json:"key,omitempty"`
	Version string `json:"version,omitempty"`
	Region  string `json:"region,omitempty"`
}

// Defaults are request defaults.
type Defaults struct {
	Weights   []float64 `json:"weights,omitempty"`
	ItemBound int       `json:"itemBound"`
	ProbCap   float64   `json:"probCap"`
	Starts    int       `json:"starts"`
	Seed      uint64    `json:"seed"`
}

// Search mirrors optimizer.Config.
type Search struct {
	Workers       int  `json:"workers"`
	Transfers     bool `json:"transfers"`
	MaxIterations int  `json:"maxIterations"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Defaults: Defaults{
			ItemBound: optimizer.Budget,
			ProbCap:   service.MaxProbCap,
			Starts:    service.DefaultStarts,
		},
		Search: Search{
			Transfers: true,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	klog.V(2).InfoS("[init] config loaded", "path", path)
	return cfg, nil
}

// ApplyEnv overrides fields from the environment through lookup, which is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str(EnvData, &c.Data.Path)
	str(EnvS3Bucket, &c.Data.S3.Bucket)
	str(EnvS3Key, &c.Data.S3.Key)
	str(EnvS3Version, &c.Data.S3.Version)
	str(EnvS3Region, &c.Data.S3.Region)

	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
		return nil
	}
	if err := num(EnvStarts, &c.Defaults.Starts); err != nil {
		return err
	}
	return num(EnvWorkers, &c.Search.Workers)
}

// OptimizerConfig returns the search parameters.
func (c Config) OptimizerConfig() optimizer.Config {
	cfg := optimizer.DefaultConfig()
	cfg.Seed = c.Defaults.Seed
	cfg.Workers = c.Search.Workers
	cfg.Transfers = c.Search.Transfers
	cfg.MaxIterations = c.Search.MaxIterations
	return cfg
}

// Fill copies defaults into the unset fields of req.
func (c Config) Fill(req service.Request) service.Request {
	if len(req.Weights) == 0 {
		req.Weights = append([]float64(nil), c.Defaults.Weights...)
	}
	if req.ItemBound == 0 {
		req.ItemBound = c.Defaults.ItemBound
	}
	if req.ProbCap == 0 {
		req.ProbCap = c.Defaults.ProbCap
	}
	if req.Starts == 0 {
		req.Starts = c.Defaults.Starts
	}
	if req.Seed == 0 {
		req.Seed = c.Defaults.Seed
	}
	return req
}

// OpenStore loads the configured dataset.
func (c Config) OpenStore(ctx context.Context) (*coeff.Store, error) {
	s3src := c.Data.S3
	switch {
	case s3src.Bucket != "" && s3src.Key != "":
		client, err := coeff.NewS3Client(ctx, s3src.Region)
		if err != nil {
			return nil, err
		}
		return coeff.LoadS3(ctx, client, s3src.Bucket, s3src.Key, s3src.Version)
	case c.Data.Path != "":
		return coeff.Open(c.Data.Path)
	case c.Data.CSV.B != "" && c.Data.CSV.V != "":
		return coeff.LoadCSV(c.Data.CSV.B, c.Data.CSV.V)
	}
	return nil, ErrNoDataSource
}
