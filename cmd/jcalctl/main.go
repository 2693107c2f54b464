// Command jcalctl is a command-line client for the jcal lunisolar calendar
// core, exposing each query-surface operation as its own subcommand against
// an in-process ephemeris provider (no server required). The provider
// defaults to the bundled series but can be swapped via --ephemeris,
// --ephemeris-path, or the JCAL_EPHEMERIS environment variable.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/amaranthustech/jcal/lunisolar"
	"github.com/amaranthustech/jcal/newmoon"
	"github.com/amaranthustech/jcal/solarterm"
)

var (
	outputFormat     string
	strictNaming     bool
	ephemerisName    string
	ephemerisPath    string
	ephemerisDataDir string
	defaultLat       = 35.681236
	defaultLon       = 139.767125
	defaultTZ        = "Asia/Tokyo"
)

var (
	registryOnce sync.Once
	registry     *lunisolar.ProviderRegistry
)

// resolveProvider applies the --ephemeris/--ephemeris-path/JCAL_EPHEMERIS
// resolution order and returns a Manager composing the resolved provider
// as primary and the bundled series provider as fallback, so every
// subcommand gets failover and caching even when an alternate ephemeris
// is requested.
func resolveProvider() (ephemeris.Provider, error) {
	registryOnce.Do(func() {
		registry = lunisolar.NewProviderRegistry(8, lunisolar.DefaultProviderFactory(ephemerisDataDir))
	})

	spec := lunisolar.ResolveEphemerisSpec(ephemerisName, ephemerisPath)
	primary, err := registry.Resolve(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ephemeris provider %+v: %w", spec, err)
	}
	return ephemeris.NewManager(primary, ephemeris.NewSeriesProvider(), ephemeris.NewMemoryCache(100, time.Hour)), nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "jcalctl",
		Short: "Query the Japanese lunisolar calendar engine",
		Long: `jcalctl - a command-line client for the jcal lunisolar calendar core.

Subcommands mirror the core's query surface one-to-one:
  day       resolve a single JST calendar date
  range     resolve a JST calendar range
  sekki     list the 24-sekki crossings in a window
  newmoon   list new-moon (conjunction) instants in a window
  solstice  find the winter-solstice-anchored lunar span for a year`,
	}

	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", "json", "Output format: json|yaml")
	rootCmd.PersistentFlags().BoolVar(&strictNaming, "diagnostic-strict-naming", false, "Use strict month-naming mode instead of the default ws_first mode")
	rootCmd.PersistentFlags().StringVar(&ephemerisName, "ephemeris", "", "Ephemeris provider name (default: series; or the JCAL_EPHEMERIS env var)")
	rootCmd.PersistentFlags().StringVar(&ephemerisPath, "ephemeris-path", "", "Explicit path to an ephemeris sample table; overrides --ephemeris")
	rootCmd.PersistentFlags().StringVar(&ephemerisDataDir, "ephemeris-data-dir", "./data/ephemeris", "Directory searched for <name>.json ephemeris tables")

	rootCmd.AddCommand(createDayCommand())
	rootCmd.AddCommand(createRangeCommand())
	rootCmd.AddCommand(createSekkiCommand())
	rootCmd.AddCommand(createNewMoonCommand())
	rootCmd.AddCommand(createSolsticeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func coreConfig() lunisolar.Config {
	cfg := lunisolar.DefaultConfig()
	if strictNaming {
		cfg.MonthNamingMode = lunisolar.ModeStrict
	}
	return cfg
}

func createDayCommand() *cobra.Command {
	var (
		date string
		tz   string
		lat  float64
		lon  float64
	)

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Resolve a single JST calendar date",
		Example: `  jcalctl day --date 2020-04-23
  jcalctl day --date 2017-06-24 --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("unknown timezone %q: %w", tz, err)
			}
			dateJST, err := time.ParseInLocation("2006-01-02", date, loc)
			if err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			provider, err := resolveProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			result, err := lunisolar.DayOf(ctx, provider, dateJST, lat, lon, tz, coreConfig())
			if err != nil {
				return err
			}
			return output(result)
		},
	}

	today := time.Now().Format("2006-01-02")
	cmd.Flags().StringVarP(&date, "date", "d", today, "Date in YYYY-MM-DD format")
	cmd.Flags().StringVar(&tz, "tz", defaultTZ, "IANA timezone")
	cmd.Flags().Float64Var(&lat, "lat", defaultLat, "Latitude, for sunrise/sunset")
	cmd.Flags().Float64Var(&lon, "lon", defaultLon, "Longitude, for sunrise/sunset")
	return cmd
}

func createRangeCommand() *cobra.Command {
	var (
		start string
		end   string
		tz    string
		lat   float64
		lon   float64
		limit int
	)

	cmd := &cobra.Command{
		Use:   "range",
		Short: "Resolve a JST calendar range",
		Example: `  jcalctl range --start 2025-01-01 --end 2025-01-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("unknown timezone %q: %w", tz, err)
			}
			startJST, err := time.ParseInLocation("2006-01-02", start, loc)
			if err != nil {
				return fmt.Errorf("invalid start date %q: %w", start, err)
			}
			endJST, err := time.ParseInLocation("2006-01-02", end, loc)
			if err != nil {
				return fmt.Errorf("invalid end date %q: %w", end, err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			provider, err := resolveProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			result, err := lunisolar.RangeOf(ctx, provider, startJST, endJST, lat, lon, tz, limit, coreConfig())
			if err != nil {
				return err
			}
			return output(result)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Range start date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&end, "end", "", "Range end date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&tz, "tz", defaultTZ, "IANA timezone")
	cmd.Flags().Float64Var(&lat, "lat", defaultLat, "Latitude, for sunrise/sunset")
	cmd.Flags().Float64Var(&lon, "lon", defaultLon, "Longitude, for sunrise/sunset")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum day count (0 uses the published default)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func createSekkiCommand() *cobra.Command {
	var (
		start     string
		end       string
		principal bool
	)

	cmd := &cobra.Command{
		Use:   "sekki",
		Short: "List 24-sekki (or 12 principal-term) crossings in a UTC window",
		Example: `  jcalctl sekki --start 2030-01-01T00:00:00Z --end 2031-01-01T00:00:00Z
  jcalctl sekki --start 2030-01-01T00:00:00Z --end 2031-01-01T00:00:00Z --principal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			startUTC, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("invalid --start, expected RFC3339: %w", err)
			}
			endUTC, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("invalid --end, expected RFC3339: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			provider, err := resolveProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			var instants []time.Time
			if principal {
				instants, err = solarterm.PrincipalTermsBetween(ctx, provider, startUTC, endUTC, solarterm.DefaultConfig())
			} else {
				instants, err = solarterm.Sekki24Between(ctx, provider, startUTC, endUTC, solarterm.DefaultConfig())
			}
			if err != nil {
				return err
			}
			return output(instants)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Window start, RFC3339 UTC instant (required)")
	cmd.Flags().StringVar(&end, "end", "", "Window end, RFC3339 UTC instant (required)")
	cmd.Flags().BoolVar(&principal, "principal", false, "List only the 12 principal terms (zhongqi), not all 24 sekki")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func createNewMoonCommand() *cobra.Command {
	var (
		start string
		end   string
	)

	cmd := &cobra.Command{
		Use:   "newmoon",
		Short: "List new-moon (conjunction) instants in a UTC window",
		Example: `  jcalctl newmoon --start 2025-01-01T00:00:00Z --end 2025-02-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			startUTC, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("invalid --start, expected RFC3339: %w", err)
			}
			endUTC, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("invalid --end, expected RFC3339: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			provider, err := resolveProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			instants, err := newmoon.NewMoonsBetween(ctx, provider, startUTC, endUTC, newmoon.DefaultConfig())
			if err != nil {
				return err
			}
			return output(instants)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Window start, RFC3339 UTC instant (required)")
	cmd.Flags().StringVar(&end, "end", "", "Window end, RFC3339 UTC instant (required)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func createSolsticeCommand() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "solstice",
		Short: "Find the winter-solstice-anchored lunar span for a Gregorian year",
		Example: `  jcalctl solstice --year 2030`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			provider, err := resolveProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			anchor, err := lunisolar.FindWinterSolsticeUTCForYear(ctx, provider, year, coreConfig())
			if err != nil {
				return err
			}
			return output(anchor)
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Gregorian year")
	return cmd
}

func output(v interface{}) error {
	switch outputFormat {
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	return nil
}
