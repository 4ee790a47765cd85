// Command heatlens explores attribution datasets: lists the known
// configurations, renders instance heatmaps to HTML (with a terminal
// preview), and runs the dataset-level statistics.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/heatlens/heatlens/configs"
	"github.com/heatlens/heatlens/dataset"
	"github.com/heatlens/heatlens/tokenization"
	"github.com/heatlens/heatlens/visualize"
	"k8s.io/klog/v2"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: heatlens <command> [flags]

Commands:
  list             List all known configuration names
  render           Render one instance's heatmap to HTML
  avg-attribution  Average attribution per token surface across a dataset
  agreement        Attribution spread across explainers, per token position

Run "heatlens <command> -h" for command flags.
`)
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "list":
		err = runList(args[1:])
	case "render":
		err = runRender(args[1:])
	case "avg-attribution":
		err = runAvgAttribution(args[1:])
	case "agreement":
		err = runAgreement(args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "heatlens: %+v\n", err)
		os.Exit(1)
	}
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range configs.List() {
		fmt.Println(name)
	}
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configName := fs.String("config", "", "Configuration name (required)")
	index := fs.Int("index", 0, "Instance index to render")
	gamma := fs.Float64("gamma", 1.0, "Perceptual intensity exponent")
	precision := fs.Int("precision", 2, "Decimal places for displayed attribution values")
	fuse := fs.String("fuse", "salient", "Sub-word fusion strategy (none, salient)")
	labels := fs.Bool("labels", false, "Show numeric attribution badges per span")
	flipIdx := fs.Int("flip", -1, "Flip attribution signs when this label index is predicted (-1 disables)")
	out := fs.String("out", "", "Output HTML file (default: stdout preview only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configName == "" {
		fs.Usage()
		return fmt.Errorf("-config flag is required")
	}

	strategy, err := tokenization.ParseStrategy(*fuse)
	if err != nil {
		return err
	}

	pack, err := dataset.Load(*configName)
	if err != nil {
		return err
	}
	unit, err := pack.At(*index)
	if err != nil {
		return err
	}

	opts := dataset.HeatmapOptions{
		Gamma:               *gamma,
		Normalize:           true,
		FlipAttributionsIdx: *flipIdx,
		FuseStrategy:        strategy,
		Precision:           *precision,
	}
	hm, err := unit.Heatmap(opts)
	if err != nil {
		return err
	}

	fmt.Printf("%s, instance %d: true label %q, predicted %q\n",
		*configName, *index, unit.TrueLabel.Name, unit.PredictedLabel.Name)
	fmt.Print(visualize.Terminal(hm))

	if *out != "" {
		html, err := unit.Render(dataset.RenderOptions{Heatmap: opts, AttributionLabels: *labels})
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, []byte(html), 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", *out)
	}
	return nil
}

func runAvgAttribution(args []string) error {
	fs := flag.NewFlagSet("avg-attribution", flag.ExitOnError)
	configName := fs.String("config", "", "Configuration name (required)")
	top := fs.Int("top", 20, "Number of entries to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configName == "" {
		fs.Usage()
		return fmt.Errorf("-config flag is required")
	}

	pack, err := dataset.Load(*configName)
	if err != nil {
		return err
	}
	means, err := dataset.AvgAttributionStat(pack)
	if err != nil {
		return err
	}
	for i, m := range means {
		if i >= *top {
			break
		}
		fmt.Printf("%-20q %+.6f\n", m.Token, m.Mean)
	}
	return nil
}

func runAgreement(args []string) error {
	fs := flag.NewFlagSet("agreement", flag.ExitOnError)
	configNames := fs.String("configs", "", "Comma-separated configuration names (at least 2, required)")
	top := fs.Int("top", 20, "Number of entries to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configNames == "" {
		fs.Usage()
		return fmt.Errorf("-configs flag is required")
	}

	var packs []*dataset.Pack
	for _, name := range strings.Split(*configNames, ",") {
		pack, err := dataset.Load(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		packs = append(packs, pack)
	}

	entries, err := dataset.ExplainerAgreementStat(packs)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if i >= *top {
			break
		}
		fmt.Printf("%-20q pos %-4d spread %.6f\n", e.Token, e.Position, e.Dissim)
	}
	return nil
}
