package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidConfig = errors.New("invalid planner configuration")

var validate = validator.New()

// Options tune a planning run. Zero values are not defaults; start from
// DefaultOptions.
type Options struct {
	TargetSize int `yaml:"target_size" json:"target_size"`
	// SpectralWeight blends spectral distance into the re-ranking of
	// coverage pools. 0 keeps the pure coverage order.
	SpectralWeight float64 `yaml:"spectral_weight" json:"spectral_weight" validate:"gte=0,lte=1"`
	// RareBoostFactor multiplies the priority of missing and scarce types.
	// 1 disables boosting.
	RareBoostFactor             float64 `yaml:"rare_boost_factor" json:"rare_boost_factor" validate:"gte=1"`
	SamplingStrategy            string  `yaml:"sampling_strategy" json:"sampling_strategy" validate:"oneof=coverage random coherence"`
	UseArchitectureDistribution bool    `yaml:"use_architecture_distribution" json:"use_architecture_distribution"`
	NodeCoverageWeight          float64 `yaml:"node_coverage_weight" json:"node_coverage_weight" validate:"gte=0,lte=1"`
	CandidateMode               string  `yaml:"candidate_mode" json:"candidate_mode" validate:"oneof=node cluster"`
	PoolFactor                  float64 `yaml:"pool_factor" json:"pool_factor" validate:"gte=1"`
	Seed                        uint64  `yaml:"seed" json:"seed"`
	// Workers bounds greedy evaluation concurrency; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers" validate:"gte=0"`
	// MaxRounds bounds greedy rounds; 0 means unlimited.
	MaxRounds         int `yaml:"max_rounds" json:"max_rounds" validate:"gte=0"`
	SpectralCacheSize int `yaml:"spectral_cache_size" json:"spectral_cache_size" validate:"gte=0"`
}

func DefaultOptions() Options {
	return Options{
		SpectralWeight:              0.5,
		RareBoostFactor:             1.0,
		SamplingStrategy:            "coverage",
		UseArchitectureDistribution: true,
		NodeCoverageWeight:          0.5,
		CandidateMode:               "node",
		PoolFactor:                  2.0,
		SpectralCacheSize:           1024,
	}
}

// Validate checks option ranges. Errors wrap ErrInvalidConfig.
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s %s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
