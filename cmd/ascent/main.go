// Package main provides the Ascent trainer-core CLI.
package main

import (
	"fmt"
	"os"

	"github.com/born-ml/ascent/schedule"
	"github.com/born-ml/ascent/train"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Ascent %s\n", version)
			return
		case "schedule":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "usage: ascent schedule <run-config.yaml>")
				os.Exit(2)
			}
			if err := previewSchedule(os.Args[2]); err != nil {
				fmt.Fprintf(os.Stderr, "ascent: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("Ascent - Distributed Mixed-Precision Training Core")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version             Show version")
	fmt.Println("  schedule <config>   Preview the learning-rate schedule for a run config")
}

// previewSchedule prints the effective learning rate at sampled points of
// the run, plus the layer-wise multipliers when they are enabled.
func previewSchedule(path string) error {
	rc, err := train.LoadRunConfig(path)
	if err != nil {
		return err
	}
	cfg, err := rc.TrainerConfig()
	if err != nil {
		return err
	}

	power := cfg.DecayPower
	if power == 0 {
		power = 1.0
	}
	sched := schedule.Polynomial{
		Base:             cfg.BaseLearningRate,
		TotalSteps:       cfg.TotalSteps,
		WarmupSteps:      cfg.WarmupSteps,
		WarmupProportion: cfg.WarmupProportion,
		Power:            power,
	}

	fmt.Printf("base rate %g over %d steps (decay power %g)\n",
		cfg.BaseLearningRate, cfg.TotalSteps, power)
	for _, pct := range []int64{0, 1, 10, 25, 50, 75, 100} {
		step := cfg.TotalSteps * pct / 100
		fmt.Printf("  step %8d (%3d%%): %.3e\n", step, pct, sched.Rate(step))
	}

	if cfg.LayerwiseDecayPower > 0 {
		fmt.Printf("\nlayer-wise multipliers (decay %g, %d layers):\n",
			cfg.LayerwiseDecayPower, cfg.NumLayers)
		for _, g := range schedule.LayerwiseGroups(cfg.NumLayers, cfg.LayerwiseDecayPower) {
			fmt.Printf("  %-28s depth %2d  x%.6f\n", g.Key, g.Depth, g.Multiplier)
		}
	}
	return nil
}
