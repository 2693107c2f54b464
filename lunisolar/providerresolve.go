package lunisolar

import (
	"os"
	"path/filepath"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
)

// EphemerisEnvVar is the environment variable consulted when neither an
// explicit ephemeris name nor path is given.
const EphemerisEnvVar = "JCAL_EPHEMERIS"

// defaultEphemerisName is the provider resolved when nothing else applies:
// the zero-dependency trigonometric series, which needs no data file and
// always succeeds.
const defaultEphemerisName = "series"

// ResolveEphemerisSpec applies the documented provider resolution order:
// an explicit path always wins; otherwise an explicit name; otherwise the
// JCAL_EPHEMERIS environment variable; otherwise the default series
// provider.
func ResolveEphemerisSpec(explicitName, explicitPath string) ProviderSpec {
	if explicitPath != "" {
		name := explicitName
		if name == "" {
			name = filepath.Base(explicitPath)
		}
		return ProviderSpec{Name: name, Path: explicitPath}
	}
	if explicitName != "" {
		return ProviderSpec{Name: explicitName}
	}
	if env := os.Getenv(EphemerisEnvVar); env != "" {
		return ProviderSpec{Name: env}
	}
	return ProviderSpec{Name: defaultEphemerisName}
}

// DefaultProviderFactory builds a providerFactory for ProviderRegistry that
// resolves "series" (or an empty name) to the bundled zero-dependency
// series provider, and any other name to a TableProvider loaded from
// spec.Path, or dataDir/<name>.json when spec.Path is empty.
func DefaultProviderFactory(dataDir string) func(ProviderSpec) (ephemeris.Provider, error) {
	return func(spec ProviderSpec) (ephemeris.Provider, error) {
		if spec.Name == "" || spec.Name == defaultEphemerisName {
			return ephemeris.NewSeriesProvider(), nil
		}

		path := spec.Path
		if path == "" {
			path = filepath.Join(dataDir, spec.Name+".json")
		}
		return ephemeris.NewTableProviderFromFile(spec.Name, spec.Name, path)
	}
}
