package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumen-dev/lumen/pkg/reactive"
)

func benchCmd() *cobra.Command {
	var (
		depth      int
		width      int
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure propagation latency through signal graphs",
		Long: `Bench builds two graph shapes and measures write-to-effect latency:

  chain:  one signal feeding a linear chain of computeds
  fanout: one signal feeding many parallel computeds, joined by one effect

Each write is timed from Set to the moment the terminal effect observes
the propagated value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runChainBench(depth, iterations)
			runFanoutBench(width, iterations)
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 100, "length of the computed chain")
	cmd.Flags().IntVar(&width, "width", 100, "number of parallel computeds in the fanout")
	cmd.Flags().IntVar(&iterations, "iterations", 10000, "writes per benchmark")

	return cmd
}

func runChainBench(depth, iterations int) {
	sys := reactive.NewSystem()
	source := reactive.NewSignal(sys, 0)

	prev := reactive.NewComputed(sys, func() int { return source.Get() + 1 })
	for i := 1; i < depth; i++ {
		inner := prev
		prev = reactive.NewComputed(sys, func() int { return inner.Get() + 1 })
	}
	last := prev

	observed := 0
	e := reactive.NewEffect(sys, func() reactive.Cleanup {
		observed = last.Get()
		return nil
	})
	defer e.Stop()

	samples := make([]time.Duration, 0, iterations)
	for i := 1; i <= iterations; i++ {
		start := time.Now()
		source.Set(i)
		samples = append(samples, time.Since(start))
		if observed != i+depth {
			fmt.Printf("chain: bad propagation: got %d, want %d\n", observed, i+depth)
			return
		}
	}

	report(fmt.Sprintf("chain (depth=%d)", depth), samples)
}

func runFanoutBench(width, iterations int) {
	sys := reactive.NewSystem()
	source := reactive.NewSignal(sys, 0)

	branches := make([]*reactive.Computed[int], width)
	for i := range branches {
		branches[i] = reactive.NewComputed(sys, func() int { return source.Get() + 1 })
	}

	sum := 0
	e := reactive.NewEffect(sys, func() reactive.Cleanup {
		total := 0
		for _, b := range branches {
			total += b.Get()
		}
		sum = total
		return nil
	})
	defer e.Stop()

	samples := make([]time.Duration, 0, iterations)
	for i := 1; i <= iterations; i++ {
		start := time.Now()
		source.Set(i)
		samples = append(samples, time.Since(start))
		if sum != (i+1)*width {
			fmt.Printf("fanout: bad propagation: got %d, want %d\n", sum, (i+1)*width)
			return
		}
	}

	report(fmt.Sprintf("fanout (width=%d)", width), samples)
}

func report(name string, samples []time.Duration) {
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	var total time.Duration
	for _, s := range samples {
		total += s
	}

	pct := func(p float64) time.Duration {
		idx := int(p * float64(len(samples)-1))
		return samples[idx]
	}

	fmt.Printf("%s: %d writes\n", name, len(samples))
	fmt.Printf("  mean: %v\n", total/time.Duration(len(samples)))
	fmt.Printf("  p50:  %v\n", pct(0.50))
	fmt.Printf("  p95:  %v\n", pct(0.95))
	fmt.Printf("  p99:  %v\n", pct(0.99))
	fmt.Printf("  max:  %v\n", samples[len(samples)-1])
}
