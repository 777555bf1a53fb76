// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sqlfence/sqlfence/lib/util/errors"
)

var (
	ErrInvalidConfigValue = errors.New("invalid config value")
)

type Config struct {
	API       API       `yaml:"api,omitempty" toml:"api,omitempty" json:"api,omitempty"`
	Log       Log       `yaml:"log,omitempty" toml:"log,omitempty" json:"log,omitempty"`
	Isolation Isolation `yaml:"isolation,omitempty" toml:"isolation,omitempty" json:"isolation,omitempty"`
	Resources Resources `yaml:"resources,omitempty" toml:"resources,omitempty" json:"resources,omitempty"`
}

type API struct {
	Addr string `yaml:"addr,omitempty" toml:"addr,omitempty" json:"addr,omitempty"`
}

type Log struct {
	Encoder string  `yaml:"encoder,omitempty" toml:"encoder,omitempty" json:"encoder,omitempty"`
	Level   string  `yaml:"level,omitempty" toml:"level,omitempty" json:"level,omitempty"`
	LogFile LogFile `yaml:"log-file,omitempty" toml:"log-file,omitempty" json:"log-file,omitempty"`
}

type LogFile struct {
	Filename   string `yaml:"filename,omitempty" toml:"filename,omitempty" json:"filename,omitempty"`
	MaxSize    int    `yaml:"max-size,omitempty" toml:"max-size,omitempty" json:"max-size,omitempty"`
	MaxDays    int    `yaml:"max-days,omitempty" toml:"max-days,omitempty" json:"max-days,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty" toml:"max-backups,omitempty" json:"max-backups,omitempty"`
}

// Isolation configures the query governance gate that stands in front of
// per-plugin schemas.
type Isolation struct {
	// MaxQueryComplexity is the ceiling for the statically estimated complexity score.
	MaxQueryComplexity int `yaml:"max-query-complexity,omitempty" toml:"max-query-complexity,omitempty" json:"max-query-complexity,omitempty"`
	// MaxQueryRows is the ceiling for the caller-supplied row estimate.
	MaxQueryRows int `yaml:"max-query-rows,omitempty" toml:"max-query-rows,omitempty" json:"max-query-rows,omitempty"`
	// MaxExecutionTime is carried to the database engine as a statement timeout.
	// It is never enforced by the gate itself: static analysis cannot bound wall-clock time.
	MaxExecutionTime time.Duration `yaml:"max-execution-time,omitempty" toml:"max-execution-time,omitempty" json:"max-execution-time,omitempty"`
	// FallbackComplexity is the score substituted when a query fails to parse.
	// 0 means "use MaxQueryComplexity", which keeps unparseable queries just under
	// the ceiling (fail-open). Set it above MaxQueryComplexity to fail closed.
	FallbackComplexity int               `yaml:"fallback-complexity,omitempty" toml:"fallback-complexity,omitempty" json:"fallback-complexity,omitempty"`
	Weights            ComplexityWeights `yaml:"weights,omitempty" toml:"weights,omitempty" json:"weights,omitempty"`
}

// ComplexityWeights are the per-construct weights of the complexity estimator.
// A zero field falls back to its default, so partial overrides merge over defaults.
type ComplexityWeights struct {
	Join          int `yaml:"join,omitempty" toml:"join,omitempty" json:"join,omitempty"`
	CartesianJoin int `yaml:"cartesian-join,omitempty" toml:"cartesian-join,omitempty" json:"cartesian-join,omitempty"`
	Subquery      int `yaml:"subquery,omitempty" toml:"subquery,omitempty" json:"subquery,omitempty"`
	Union         int `yaml:"union,omitempty" toml:"union,omitempty" json:"union,omitempty"`
	Intersect     int `yaml:"intersect,omitempty" toml:"intersect,omitempty" json:"intersect,omitempty"`
	Except        int `yaml:"except,omitempty" toml:"except,omitempty" json:"except,omitempty"`
	RecursiveCTE  int `yaml:"recursive-cte,omitempty" toml:"recursive-cte,omitempty" json:"recursive-cte,omitempty"`
	Aggregate     int `yaml:"aggregate,omitempty" toml:"aggregate,omitempty" json:"aggregate,omitempty"`
	Window        int `yaml:"window,omitempty" toml:"window,omitempty" json:"window,omitempty"`
	Wildcard      int `yaml:"wildcard,omitempty" toml:"wildcard,omitempty" json:"wildcard,omitempty"`
	WhereOr       int `yaml:"where-or,omitempty" toml:"where-or,omitempty" json:"where-or,omitempty"`
	WhereFunction int `yaml:"where-function,omitempty" toml:"where-function,omitempty" json:"where-function,omitempty"`
}

// DefaultComplexityWeights returns the documented default weight table.
func DefaultComplexityWeights() ComplexityWeights {
	return ComplexityWeights{
		Join:          3,
		CartesianJoin: 8,
		Subquery:      4,
		Union:         3,
		Intersect:     4,
		Except:        4,
		RecursiveCTE:  10,
		Aggregate:     2,
		Window:        5,
		Wildcard:      1,
		WhereOr:       1,
		WhereFunction: 2,
	}
}

// Merged returns the weights with every zero field replaced by its default.
func (w ComplexityWeights) Merged() ComplexityWeights {
	def := DefaultComplexityWeights()
	merge := func(v, d int) int {
		if v == 0 {
			return d
		}
		return v
	}
	return ComplexityWeights{
		Join:          merge(w.Join, def.Join),
		CartesianJoin: merge(w.CartesianJoin, def.CartesianJoin),
		Subquery:      merge(w.Subquery, def.Subquery),
		Union:         merge(w.Union, def.Union),
		Intersect:     merge(w.Intersect, def.Intersect),
		Except:        merge(w.Except, def.Except),
		RecursiveCTE:  merge(w.RecursiveCTE, def.RecursiveCTE),
		Aggregate:     merge(w.Aggregate, def.Aggregate),
		Window:        merge(w.Window, def.Window),
		Wildcard:      merge(w.Wildcard, def.Wildcard),
		WhereOr:       merge(w.WhereOr, def.WhereOr),
		WhereFunction: merge(w.WhereFunction, def.WhereFunction),
	}
}

// Resources are the static per-plugin infrastructure ceilings.
type Resources struct {
	MaxConnections     int   `yaml:"max-connections,omitempty" toml:"max-connections,omitempty" json:"max-connections,omitempty"`
	MaxStorageBytes    int64 `yaml:"max-storage-bytes,omitempty" toml:"max-storage-bytes,omitempty" json:"max-storage-bytes,omitempty"`
	MaxTables          int   `yaml:"max-tables,omitempty" toml:"max-tables,omitempty" json:"max-tables,omitempty"`
	MaxRowsPerTable    int64 `yaml:"max-rows-per-table,omitempty" toml:"max-rows-per-table,omitempty" json:"max-rows-per-table,omitempty"`
	MaxIndexesPerTable int   `yaml:"max-indexes-per-table,omitempty" toml:"max-indexes-per-table,omitempty" json:"max-indexes-per-table,omitempty"`
}

func NewConfig() *Config {
	var cfg Config

	cfg.API.Addr = "0.0.0.0:3080"

	cfg.Log.Level = "info"
	cfg.Log.Encoder = "json"
	cfg.Log.LogFile.MaxSize = 300
	cfg.Log.LogFile.MaxDays = 3
	cfg.Log.LogFile.MaxBackups = 3

	cfg.Isolation.MaxQueryComplexity = 1000
	cfg.Isolation.MaxQueryRows = 10000
	cfg.Isolation.MaxExecutionTime = 5 * time.Second
	cfg.Isolation.Weights = DefaultComplexityWeights()

	cfg.Resources.MaxConnections = 5
	cfg.Resources.MaxStorageBytes = 100 * 1024 * 1024
	cfg.Resources.MaxTables = 20
	cfg.Resources.MaxRowsPerTable = 100000
	cfg.Resources.MaxIndexesPerTable = 5

	return &cfg
}

// Unmarshal decodes TOML over the defaults and validates the result.
func Unmarshal(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Check() error {
	if cfg.Isolation.MaxQueryComplexity <= 0 {
		return errors.Wrapf(ErrInvalidConfigValue, "max-query-complexity must be positive")
	}
	if cfg.Isolation.MaxQueryRows <= 0 {
		return errors.Wrapf(ErrInvalidConfigValue, "max-query-rows must be positive")
	}
	if cfg.Isolation.MaxExecutionTime < 0 {
		return errors.Wrapf(ErrInvalidConfigValue, "max-execution-time must not be negative")
	}
	if cfg.Isolation.FallbackComplexity < 0 {
		return errors.Wrapf(ErrInvalidConfigValue, "fallback-complexity must not be negative")
	}
	w := cfg.Isolation.Weights
	for _, v := range []int{w.Join, w.CartesianJoin, w.Subquery, w.Union, w.Intersect, w.Except,
		w.RecursiveCTE, w.Aggregate, w.Window, w.Wildcard, w.WhereOr, w.WhereFunction} {
		if v < 0 {
			return errors.Wrapf(ErrInvalidConfigValue, "complexity weights must not be negative")
		}
	}
	cfg.Isolation.Weights = w.Merged()
	return nil
}

func (cfg *Config) Clone() *Config {
	newCfg := *cfg
	return &newCfg
}

func (cfg *Config) ToBytes() ([]byte, error) {
	b := new(bytes.Buffer)
	err := toml.NewEncoder(b).Encode(cfg)
	return b.Bytes(), errors.WithStack(err)
}
