package downsample

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/itohio/tracedown/pkg/config"
)

// ErrUnknownStrategy is returned for a strategy name that is not registered.
var ErrUnknownStrategy = errors.New("unknown downsampling strategy")

// Strategy names accepted by Strategy and the configuration file.
const (
	StrategyEveryNth = "everynth"
	StrategyMinMax   = "minmax"
	StrategyLTTB     = "lttb"
)

// Number is the set of value types the value-aware strategies can rank.
type Number interface {
	constraints.Integer | constraints.Float
}

// Strategy returns the reducer registered under name. An empty name selects everynth.
func Strategy[V Number](name string) (Reducer[V], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyEveryNth:
		return EveryNth[V]{}, nil
	case StrategyMinMax:
		return MinMax[V]{}, nil
	case StrategyLTTB:
		return LTTB[V]{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// NewFromConfig builds a Downsampler from the downsample section of the configuration.
func NewFromConfig[V Number](cfg config.DownsampleConfig) (*Downsampler[V], error) {
	reducer, err := Strategy[V](cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return New(reducer, Options{
		InterleaveGaps: cfg.Interleave(),
		AllowedDtypes:  cfg.AllowedDtypes,
		GapQuantile:    cfg.Quantile(),
	})
}
