package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"cauldron-optimizer/internal/coeff"
	"cauldron-optimizer/internal/config"
	"cauldron-optimizer/internal/metrics"
	"cauldron-optimizer/internal/optimizer"
	"cauldron-optimizer/internal/report"
	"cauldron-optimizer/internal/service"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	data       string
	bCSV, vCSV string
	jsonOut    bool
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:          "cauldron",
		Short:        "Optimize cauldron ingredient allocations",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&g.data, "data", "", "Coefficient dataset (.json or .json.zst)")
	pf.StringVar(&g.bCSV, "b-csv", "", "B matrix as CSV (with --v-csv)")
	pf.StringVar(&g.vCSV, "v-csv", "", "V matrix as CSV (with --b-csv)")
	pf.BoolVar(&g.jsonOut, "json", false, "Output results as JSON")

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	pf.AddGoFlagSet(klogFlags)

	root.AddCommand(
		newOptimizeCommand(g),
		newProbabilitiesCommand(g),
		newLimitsCommand(g),
	)
	return root
}

// load resolves the configuration (file, then environment, then flags)
// and opens the dataset it names.
func (g *globalOptions) load(ctx context.Context) (config.Config, *coeff.Store, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return cfg, nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, nil, err
	}
	if g.data != "" || g.bCSV != "" {
		cfg.Data = config.DataSource{
			Path: g.data,
			CSV:  config.CSVPair{B: g.bCSV, V: g.vCSV},
		}
	}
	store, err := cfg.OpenStore(ctx)
	if err != nil {
		return cfg, nil, err
	}
	categories, items := store.Dims()
	klog.V(2).InfoS("[init] dataset loaded", "version", store.Version(),
		"categories", categories, "items", items)
	return cfg, store, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type optimizeOptions struct {
	weights      []float64
	premium      []int
	premiumNames []string
	itemBound    int
	probCap      float64
	starts       int
	seed         uint64
	workers      int
	noTransfers  bool
	chart        string
	metricsFile  string
}

func newOptimizeCommand(g *globalOptions) *cobra.Command {
	o := &optimizeOptions{}
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search for the best allocation for a set of effect weights",
		Example: `  cauldron optimize --data coefficients.json --weights 1,0.5,0,0.8 --premium 3,7
  cauldron optimize --config cauldron.yaml --starts 200 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, g)
		},
	}
	f := cmd.Flags()
	f.Float64SliceVar(&o.weights, "weights", nil, "Weight in [0,1] per effect; the count sets the active effects")
	f.IntSliceVar(&o.premium, "premium", nil, "Item indices that must receive no units")
	f.StringSliceVar(&o.premiumNames, "premium-names", nil, "Item names that must receive no units")
	f.IntVar(&o.itemBound, "item-bound", 0, "Maximum units per item (default: the budget)")
	f.Float64Var(&o.probCap, "prob-cap", 0, "Maximum credited probability per effect (default 100)")
	f.IntVar(&o.starts, "starts", 0, fmt.Sprintf("Random restarts, 1..%d (default %d)", service.MaxStarts, service.DefaultStarts))
	f.Uint64Var(&o.seed, "seed", 0, "Random seed; equal seeds give equal results")
	f.IntVar(&o.workers, "workers", 0, "Concurrent restarts (0 = GOMAXPROCS)")
	f.BoolVar(&o.noTransfers, "no-transfers", false, "Only use single-unit additions")
	f.StringVar(&o.chart, "chart", "", "Write an HTML chart of the result to this file")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write prometheus metrics in textfile format to this file")
	return cmd
}

func (o *optimizeOptions) run(cmd *cobra.Command, g *globalOptions) error {
	cfg, store, err := g.load(cmd.Context())
	if err != nil {
		return err
	}

	req := cfg.Fill(service.Request{
		Weights:      o.weights,
		Premium:      o.premium,
		PremiumNames: o.premiumNames,
		ItemBound:    o.itemBound,
		ProbCap:      o.probCap,
		Starts:       o.starts,
		Seed:         o.seed,
	})
	ocfg := cfg.OptimizerConfig()
	if changed(cmd.Flags(), "workers") {
		ocfg.Workers = o.workers
	}
	if o.noTransfers {
		ocfg.Transfers = false
	}
	if klog.V(3).Enabled() {
		ocfg.OnCommit = func(start int, allocation []int, score float64) {
			klog.InfoS("[climb] commit", "start", start, "score", score, "allocation", allocation)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Running %d starts over %d effects ...\n", req.Starts, len(req.Weights))
	resp, err := service.Optimize(store, req, ocfg)

	rec := metrics.NewRecorder()
	rec.Record(resp.Stats, resp.Cache, resp.Score, resp.Elapsed, err)
	if o.metricsFile != "" {
		if werr := rec.WriteTextfile(o.metricsFile); werr != nil {
			klog.ErrorS(werr, "writing metrics", "path", o.metricsFile)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "  score %.2f in %.1fs\n", resp.Score, resp.Elapsed.Seconds())

	if o.chart != "" {
		if err := report.WriteChart(o.chart, resp); err != nil {
			return fmt.Errorf("writing chart: %w", err)
		}
	}
	if g.jsonOut {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), report.Format(resp))
	return err
}

func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}

func newProbabilitiesCommand(g *globalOptions) *cobra.Command {
	var categories int
	var allocation []int
	cmd := &cobra.Command{
		Use:   "probabilities",
		Short: "Score a given allocation without searching",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := g.load(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := service.Formula(store, categories, allocation)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.Format(resp))
			return err
		},
	}
	cmd.Flags().IntVar(&categories, "categories", 5, "Number of active effects")
	cmd.Flags().IntSliceVar(&allocation, "allocation", nil, "Units per item, one entry per item")
	_ = cmd.MarkFlagRequired("allocation")
	return cmd
}

type limitsOutput struct {
	Version       string   `json:"version,omitempty"`
	MaxCategories int      `json:"maxCategories"`
	Items         int      `json:"items"`
	Budget        int      `json:"budget"`
	MaxStarts     int      `json:"maxStarts"`
	EffectNames   []string `json:"effectNames"`
	ItemNames     []string `json:"itemNames"`
}

func newLimitsCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Show the dataset dimensions and request limits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := g.load(cmd.Context())
			if err != nil {
				return err
			}
			limits := optimizer.LimitsOf(store)
			out := limitsOutput{
				Version:       store.Version(),
				MaxCategories: limits.MaxCategories,
				Items:         limits.Items,
				Budget:        limits.Budget,
				MaxStarts:     service.MaxStarts,
			}
			for d := 0; d < limits.MaxCategories; d++ {
				out.EffectNames = append(out.EffectNames, store.EffectName(d))
			}
			for j := 0; j < limits.Items; j++ {
				out.ItemNames = append(out.ItemNames, store.ItemName(j))
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-12s %s\n", "Dataset", out.Version)
			fmt.Fprintf(w, "%-12s %d\n", "Effects", out.MaxCategories)
			fmt.Fprintf(w, "%-12s %d\n", "Items", out.Items)
			fmt.Fprintf(w, "%-12s %d\n", "Budget", out.Budget)
			fmt.Fprintf(w, "%-12s %d\n", "Max starts", out.MaxStarts)
			return nil
		},
	}
}
