package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	g_error "github.com/apetros/goramses/lib/error"
	"github.com/apetros/goramses/lib/extract"
)

var (
	verbose bool
	outPath string
	curveSpecs []string
	jobFile string
	timesteps int
	compress bool
)

func main() {
	rootCmd := &cobra.Command{
		Use: "goramses",
		Short: "decode, inspect, and export RAMSES trajectory files",
	}

	catalogCmd := &cobra.Command{
		Use: "catalog [file]",
		Short: "print the component catalog of a trajectory file",
		Args: cobra.ExactArgs(1),
		Run: runCatalog,
	}
	catalogCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"also list every name and observable")

	exportCmd := &cobra.Command{
		Use: "export [file]",
		Short: "extract named curves to CSV",
		Args: cobra.ExactArgs(1),
		Run: runExport,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "out.csv",
		"output CSV path")
	exportCmd.Flags().StringArrayVar(&curveSpecs, "curve", nil,
		"curve to extract, as kind:name:obs (e.g. bus:B1:mag)")
	exportCmd.Flags().StringVar(&jobFile, "job", "",
		"YAML job file listing the curves to extract")

	genCmd := &cobra.Command{
		Use: "gen [file]",
		Short: "write a small synthetic trajectory file",
		Args: cobra.ExactArgs(1),
		Run: runGen,
	}
	genCmd.Flags().IntVar(&timesteps, "timesteps", 100,
		"number of timesteps to generate")
	genCmd.Flags().BoolVar(&compress, "zstd", false,
		"compress the output with zstd")

	rootCmd.AddCommand(catalogCmd, exportCmd, genCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCatalog(cmd *cobra.Command, args []string) {
	ext, err := extract.Decode(args[0])
	if err != nil {
		g_error.External("Could not decode %s: %s", args[0], err.Error())
	}

	c := ext.Catalog()
	fmt.Println(ext)

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "kind\tcount\n")
	fmt.Fprintf(w, "bus\t%d\n", len(c.Buses))
	fmt.Fprintf(w, "shunt\t%d\n", len(c.Shunts))
	fmt.Fprintf(w, "load\t%d\n", len(c.Loads))
	fmt.Fprintf(w, "branch\t%d\n", len(c.Branches))
	fmt.Fprintf(w, "sync\t%d\n", len(c.Syncs))
	fmt.Fprintf(w, "inj\t%d\n", len(c.Injectors))
	fmt.Fprintf(w, "twop\t%d\n", len(c.Twoports))
	fmt.Fprintf(w, "dctl\t%d\n", len(c.Controllers))
	w.Flush()

	if !verbose { return }

	fmt.Printf("\nbuses: %s\n", strings.Join(c.Buses, ", "))
	fmt.Printf("shunts: %s\n", strings.Join(c.Shunts, ", "))
	fmt.Printf("loads: %s\n", strings.Join(c.Loads, ", "))
	fmt.Printf("branches: %s\n", strings.Join(c.Branches, ", "))
	for i := range c.Syncs {
		fmt.Printf("sync %s: exc [%s], tor [%s]\n", c.Syncs[i].Name,
			strings.Join(c.Syncs[i].Exc, ", "),
			strings.Join(c.Syncs[i].Tor, ", "))
	}
	printDyn("inj", c.Injectors)
	printDyn("twop", c.Twoports)
	printDyn("dctl", c.Controllers)
}

func printDyn(kind string, entries []extract.DynEntry) {
	for i := range entries {
		fmt.Printf("%s %s: [%s]\n", kind, entries[i].Name,
			strings.Join(entries[i].Obs, ", "))
	}
}

// curveSpec names one curve of an export job.
type curveSpec struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	Obs string `yaml:"obs"`
}

type exportJob struct {
	Output string `yaml:"output"`
	Curves []curveSpec `yaml:"curves"`
}

func runExport(cmd *cobra.Command, args []string) {
	job := exportJob{ Output: outPath }

	if jobFile != "" {
		raw, err := os.ReadFile(jobFile)
		if err != nil {
			g_error.External("Could not read the job file %s: %s",
				jobFile, err.Error())
		}
		if err := yaml.Unmarshal(raw, &job); err != nil {
			g_error.External("Could not parse the job file %s: %s",
				jobFile, err.Error())
		}
		if job.Output == "" { job.Output = outPath }
	}

	for _, spec := range curveSpecs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) != 3 {
			g_error.External("The curve '%s' is not of the form " +
				"kind:name:obs. Valid kinds are %s.", spec,
				strings.Join(extract.Kinds(), ", "))
		}
		job.Curves = append(job.Curves,
			curveSpec{ Kind: parts[0], Name: parts[1], Obs: parts[2] })
	}

	if len(job.Curves) == 0 {
		g_error.External("No curves requested. Use --curve or --job.")
	}

	ext, err := extract.Decode(args[0])
	if err != nil {
		g_error.External("Could not decode %s: %s", args[0], err.Error())
	}

	// Unknown names only cost the curve they name, not the export.
	var curves []extract.TimeSeries
	for _, spec := range job.Curves {
		s, ok := ext.Series(spec.Kind, spec.Name, spec.Obs)
		if !ok { continue }
		curves = append(curves, s)
	}
	if len(curves) == 0 {
		g_error.External("None of the %d requested curves is in the " +
			"catalog of %s.", len(job.Curves), args[0])
	}

	if err := writeCSV(job.Output, ext.Time(), curves); err != nil {
		g_error.External("Could not write %s: %s", job.Output, err.Error())
	}
	fmt.Printf("wrote %d curves over %d timesteps to %s\n",
		len(curves), ext.Timesteps(), job.Output)
}

func writeCSV(path string, time []float64, curves []extract.TimeSeries) error {
	f, err := os.Create(path)
	if err != nil { return err }
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{ "time (s)" }
	for _, c := range curves { header = append(header, c.Label) }
	if err := w.Write(header); err != nil { return err }

	row := make([]string, 1 + len(curves))
	for i := range time {
		row[0] = strconv.FormatFloat(time[i], 'g', -1, 64)
		for j, c := range curves {
			row[j+1] = strconv.FormatFloat(c.Value[i], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil { return err }
	}

	w.Flush()
	return w.Error()
}

func runGen(cmd *cobra.Command, args []string) {
	if timesteps <= 0 {
		g_error.External("--timesteps must be positive, not %d.", timesteps)
	}

	w := &extract.TrajectoryWriter{
		Catalog: extract.Catalog{
			Buses: []string{ "B1", "B2" },
			Shunts: []string{ "SH1" },
			Loads: []string{ "L1" },
			Branches: []string{ "B1-B2" },
			Syncs: []extract.SyncEntry{
				{ Name: "g1", Exc: []string{ "vf", "vref" },
					Tor: []string{ "Tm", "zg" } },
			},
			Injectors: []extract.DynEntry{
				{ Name: "pv1", Obs: []string{ "P", "Q" } },
			},
			Twoports: []extract.DynEntry{
				{ Name: "hvdc1", Obs: []string{ "P1" } },
			},
			Controllers: []extract.DynEntry{
				{ Name: "agc", Obs: []string{ "g1set" } },
			},
		},
	}

	total := w.Catalog.TotalObservables()
	values := make([]float64, total)
	for k := 0; k < timesteps; k++ {
		t := 0.05 * float64(k)
		for c := range values {
			values[c] = math.Sin(t + float64(c))
		}
		if err := w.AppendRow(t, values); err != nil {
			g_error.Internal("Generated row is inconsistent with the " +
				"generated catalog: %s", err.Error())
		}
	}

	if err := w.WriteFile(args[0], compress); err != nil {
		g_error.External("Could not write %s: %s", args[0], err.Error())
	}
	fmt.Printf("wrote %d timesteps (%d observables) to %s\n",
		timesteps, total, args[0])
}
