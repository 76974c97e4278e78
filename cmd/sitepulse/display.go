package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/sitepulse/sitepulse/internal/orchestrator"
	"github.com/sitepulse/sitepulse/internal/progress"
	"github.com/sitepulse/sitepulse/internal/storage"
)

// statusPaint picks the render color for a variance status.
func statusPaint(status progress.Status) func(a ...interface{}) string {
	switch status {
	case progress.StatusGreen:
		return color.New(color.FgGreen).SprintFunc()
	case progress.StatusYellow:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

// statusIcon mirrors statusPaint with a glyph.
func statusIcon(status progress.Status) string {
	switch status {
	case progress.StatusGreen:
		return "●"
	case progress.StatusYellow:
		return "⚠"
	default:
		return "✗"
	}
}

// printReport renders one fused snapshot with its inputs.
func printReport(label string, at time.Time, d *progress.Digital, p *progress.Physical, f *progress.Fused) {
	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	paint := statusPaint(f.VarianceAlert)

	fmt.Printf("%s %s  %s\n",
		paint(statusIcon(f.VarianceAlert)),
		bold(label),
		gray(at.Format("2006-01-02 15:04")))
	fmt.Printf("    True progress   %5.1f%%  %s\n",
		f.TrueProgressPercent, paint(f.VarianceAlert.String()))
	fmt.Printf("    Digital         %5.1f%%  (%d/%d pts, velocity %.1f)\n",
		d.Fraction()*100, d.CompletedPoints, d.TotalStoryPoints, d.SprintVelocity)
	fmt.Printf("    Physical        %5.1f%%  (%s, model confidence %.2f)\n",
		p.Completeness*100, p.Phase, p.Confidence)
	fmt.Printf("    Predicted done  %s\n", f.PredictedCompletion.Format("2006-01-02"))
	fmt.Printf("    Confidence      %5.2f\n", f.ConfidenceScore)
	fmt.Printf("    CPI             %5.2f\n", f.CostPerformanceIndex)
}

// printCycle renders a stored cycle.
func printCycle(label string, c *storage.Cycle) {
	printReport(label, c.RunAt, &c.Digital, &c.Physical, &c.Fused)
}

// printResult renders a fresh analysis outcome.
func printResult(res *orchestrator.CycleResult) {
	if res.Skipped {
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("%s %s\n    %s\n",
			yellow("○"), res.Project.DisplayName(), gray(res.SkipReason))
		return
	}
	printReport(res.Project.DisplayName(), time.Now(), res.Digital, res.Physical, res.Fused)
}
