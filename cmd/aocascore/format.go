package main

import (
	"fmt"

	"aocascore/pkg/analysis"
	"aocascore/pkg/scoring"
	"aocascore/pkg/stats"
)

func printReport(report *analysis.Report) {
	res := report.Result

	fmt.Println("=== AORTIC VALVE CALCIUM SCORE ===")
	if report.Patient.Name != "" {
		fmt.Printf("Patient:          %s\n", report.Patient.Name)
	}
	if report.Patient.ID != "" {
		fmt.Printf("ID:               %s\n", report.Patient.ID)
	}
	fmt.Printf("Sex:              %s\n", report.Patient.Sex)
	if report.Patient.Age > 0 {
		fmt.Printf("Age:              %d\n", report.Patient.Age)
	}
	fmt.Println()

	if res.Condition != scoring.ConditionOK {
		fmt.Printf("Outcome:          %s\n", res.Condition)
	}
	fmt.Printf("Agatston score:   %.1f AU\n", res.TotalAgatston)
	fmt.Printf("Calcium volume:   %.1f mm3\n", res.TotalVolumeMM3)
	fmt.Printf("Equivalent mass:  %.2f mg\n", res.MassMG)
	fmt.Printf("Mean density:     %.1f HU\n", res.MeanDensityHU)
	fmt.Printf("Peak density:     %d HU\n", res.MaxDensityHU)
	fmt.Printf("Lesions:          %d\n", res.LesionCount)
	fmt.Printf("Severity:         %s (%s)\n", report.Severity, report.Classification)

	if band, err := stats.ReferenceBand(res.TotalAgatston, report.Patient.Sex, report.Patient.Age); err == nil {
		fmt.Printf("Reference:        %s for %s age %d\n", band, report.Patient.Sex, report.Patient.Age)
	}

	fmt.Println()
	fmt.Println(report.Interpretation)

	if res.Condition == scoring.ConditionOK {
		fmt.Println()
		fmt.Println("Density factor distribution:")
		labels := []string{"Factor 1 (130-199 HU)", "Factor 2 (200-299 HU)", "Factor 3 (300-399 HU)", "Factor 4 (400+ HU)"}
		for i, label := range labels {
			fmt.Printf("  %-22s %5.1f%%\n", label, res.DensityDistribution[i])
		}
	}

	fmt.Printf("\nRun %s completed in %.2fs\n", report.RunID, report.Duration.Seconds())
}

func printStatistics(report *analysis.Report) {
	s := report.Statistics

	fmt.Println("=== CALCIUM DISTRIBUTION STATISTICS ===")

	fmt.Println("HU histogram:")
	for _, bin := range s.Histogram {
		if bin.HighHU > 1e9 {
			fmt.Printf("  [%.0f, inf)    %d voxels\n", bin.LowHU, bin.Count)
		} else {
			fmt.Printf("  [%.0f, %.0f)  %d voxels\n", bin.LowHU, bin.HighHU, bin.Count)
		}
	}

	fmt.Println("\nPer-lesion volume percentiles:")
	for _, p := range s.Percentiles {
		fmt.Printf("  p%-4.0f %.2f mm3\n", p.Percentile, p.VolumeMM3)
	}

	fmt.Println("\nAxial score profile:")
	for _, sl := range s.PerSlice {
		fmt.Printf("  slice %-4d %.1f AU\n", sl.Slice, sl.Score)
	}

	fmt.Printf("\nBull's-eye sectors (center %.1f, %.1f, %.1f):\n",
		s.Angular.Center[0], s.Angular.Center[1], s.Angular.Center[2])
	for _, sector := range s.Angular.Sectors {
		fmt.Printf("  %5.0f-%-5.0f deg  %.1f AU  (%d lesions)\n",
			sector.StartDeg, sector.EndDeg, sector.Score, sector.LesionCount)
	}

	fmt.Println("\nRadial rings:")
	fmt.Printf("  center  %6d voxels  mean %.1f HU\n", s.Rings.Center.VoxelCount, s.Rings.Center.MeanHU)
	fmt.Printf("  cusp    %6d voxels  mean %.1f HU\n", s.Rings.Cusp.VoxelCount, s.Rings.Cusp.MeanHU)
	fmt.Printf("  outer   %6d voxels  mean %.1f HU\n", s.Rings.Outer.VoxelCount, s.Rings.Outer.MeanHU)
}
