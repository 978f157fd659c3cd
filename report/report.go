// Package report formats fetch_log() output into a CSV file or a
// human-readable console summary, mirroring the teacher's end-of-run
// reporting style.
package report

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"aimsim/endpoint"
)

// Summary carries end-of-run aggregate metrics computed from a fetch_log()
// snapshot.
type Summary struct {
	Spawned              int
	Exited               int
	ArrivedAtDestination int
	AvgTravelTimeSteps    float64
}

// Summarize computes aggregate metrics over a set of log entries.
func Summarize(entries []endpoint.LogEntry) Summary {
	sum := Summary{Spawned: len(entries)}
	var totalTravel float64
	for _, e := range entries {
		if !e.Exited {
			continue
		}
		sum.Exited++
		if e.ArrivedAtDestination {
			sum.ArrivedAtDestination++
		}
		if e.ExitTimestep.Present {
			totalTravel += e.ExitTimestep.Value - float64(e.EntryTimestep)
		}
	}
	if sum.Exited > 0 {
		sum.AvgTravelTimeSteps = totalTravel / float64(sum.Exited)
	}
	return sum
}

// WriteCSVReport writes one row per logged vehicle plus a summary row to the
// given path. If reportPath is a directory, a timestamped file is created
// inside it; if it is a file path, a timestamp is suffixed before the
// extension.
func WriteCSVReport(reportPath string, entries []endpoint.LogEntry) (string, error) {
	if reportPath == "" {
		return "", nil
	}
	ts := time.Now().Format("20060102-150405")
	outPath := reportPath
	if fi, err := os.Stat(outPath); err == nil && fi.IsDir() {
		outPath = filepath.Join(outPath, fmt.Sprintf("report-%s.csv", ts))
	} else {
		ext := filepath.Ext(outPath)
		base := outPath[:len(outPath)-len(ext)]
		outPath = fmt.Sprintf("%s-%s%s", base, ts, ext)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fmt.Fprintln(f, "section,vin,entry_timestep,exit_timestep,arrived_at_destination,spawned,exited,arrived,avg_travel_steps,timestamp")
	for _, e := range entries {
		exit := ""
		if e.ExitTimestep.Present {
			exit = fmt.Sprintf("%.0f", e.ExitTimestep.Value)
		}
		fmt.Fprintf(f, "vehicle,%d,%d,%s,%t,,,,,%s\n", e.VIN, e.EntryTimestep, exit, e.ArrivedAtDestination, ts)
	}
	sum := Summarize(entries)
	fmt.Fprintf(f, "summary,,,,,%d,%d,%d,%.2f,%s\n", sum.Spawned, sum.Exited, sum.ArrivedAtDestination, sum.AvgTravelTimeSteps, ts)
	log.Printf("CSV report written to %s", outPath)
	return outPath, nil
}

// PrintConsoleReport prints a human-readable summary to stdout.
func PrintConsoleReport(entries []endpoint.LogEntry) {
	sum := Summarize(entries)
	fmt.Println("=== Simulation Report ===")
	fmt.Printf("Vehicles spawned: %d\n", sum.Spawned)
	fmt.Printf("Vehicles exited: %d\n", sum.Exited)
	fmt.Printf("Arrived at destination: %d\n", sum.ArrivedAtDestination)
	fmt.Printf("Average travel time: %.2f timesteps\n", round2(sum.AvgTravelTimeSteps))
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
