// Package vectorutils is the vector utility package
package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/vector"
	"github.com/papercomputeco/ambient/pkg/vector/chroma"
	"github.com/papercomputeco/ambient/pkg/vector/sqlitevec"
)

type NewDriverOpts struct {
	Provider   string
	Target     string
	Dimensions uint
	Logger     *zap.Logger
}

// NewDriver constructs a vector.Driver for the configured provider.
func NewDriver(o *NewDriverOpts) (vector.Driver, error) {
	switch o.Provider {
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL: o.Target,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector provider: %s", o.Provider)
	}
}
