package shell

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/engine"
	"github.com/sitepulse/sitepulse/internal/orchestrator"
	"github.com/sitepulse/sitepulse/internal/progress"
	"github.com/sitepulse/sitepulse/internal/storage"
)

// statusColor picks the render color for a variance status.
func statusColor(status progress.Status) func(a ...interface{}) string {
	switch status {
	case progress.StatusGreen:
		return color.New(color.FgGreen).SprintFunc()
	case progress.StatusYellow:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

// project resolves the first argument to a configured project.
func (s *Shell) project(args []string) (*config.Project, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("project ID required")
	}
	project, ok := s.cfg.Project(args[0])
	if !ok {
		return nil, fmt.Errorf("project %q is not configured", args[0])
	}
	return project, nil
}

// engineSet resolves a project's engine set from the registry.
func (s *Shell) engineSet(projectID string) (*engine.Set, error) {
	set, ok := s.analyzer.Registry().Get(projectID)
	if !ok {
		return nil, fmt.Errorf("project %q has no engine set", projectID)
	}
	return set, nil
}

// latestCycle loads the most recent cycle, with a friendlier message than
// the raw not-found error.
func (s *Shell) latestCycle(projectID string) (*storage.Cycle, error) {
	cycle, err := s.store.LatestCycle(s.ctx, projectID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("no cycles recorded for %s yet; try 'analyze %s'", projectID, projectID)
	}
	return cycle, err
}

// printFused renders one fused snapshot.
func printFused(label string, at time.Time, d *progress.Digital, p *progress.Physical, f *progress.Fused) {
	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	sc := statusColor(f.VarianceAlert)

	fmt.Printf("%s  %s\n", bold(label), gray(at.Format("2006-01-02 15:04")))
	fmt.Printf("  True progress     %5.1f%%  %s\n", f.TrueProgressPercent, sc(f.VarianceAlert.String()))
	fmt.Printf("  Digital/physical  %5.1f%% / %.1f%%\n", d.Fraction()*100, p.Completeness*100)
	fmt.Printf("  Predicted done    %s\n", f.PredictedCompletion.Format("2006-01-02"))
	fmt.Printf("  Confidence        %5.2f\n", f.ConfidenceScore)
	fmt.Printf("  CPI               %5.2f\n", f.CostPerformanceIndex)
}

func (s *Shell) printResult(res *orchestrator.CycleResult) {
	if res.Skipped {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s  %s: %s\n", res.Project.DisplayName(), yellow("skipped"), res.SkipReason)
		return
	}
	printFused(res.Project.DisplayName(), time.Now(), res.Digital, res.Physical, res.Fused)
}

// cmdStatus shows the latest stored cycle per project.
func (s *Shell) cmdStatus(args []string) error {
	projects := s.cfg.Projects
	if len(args) > 0 {
		p, err := s.project(args)
		if err != nil {
			return err
		}
		projects = []config.Project{*p}
	}

	fmt.Println()
	for _, p := range projects {
		cycle, err := s.store.LatestCycle(s.ctx, p.ID)
		if errors.Is(err, storage.ErrNotFound) {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("%s  %s\n\n", p.DisplayName(), yellow("no cycles yet"))
			continue
		}
		if err != nil {
			return err
		}
		printFused(p.DisplayName(), cycle.RunAt, &cycle.Digital, &cycle.Physical, &cycle.Fused)
		fmt.Println()
	}
	return nil
}

// cmdHistory lists recent cycles for one project.
func (s *Shell) cmdHistory(args []string) error {
	p, err := s.project(args)
	if err != nil {
		return err
	}

	limit := 10
	if len(args) > 1 {
		limit, err = strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad limit %q: %w", args[1], err)
		}
	}

	cycles, err := s.store.ListCycles(s.ctx, p.ID, limit)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s No history for %s yet.\n\n", yellow("ℹ"), p.DisplayName())
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan(p.DisplayName()+" history"))
	for _, c := range cycles {
		sc := statusColor(c.Fused.VarianceAlert)
		fmt.Printf("  %s  %5.1f%%  %s  cpi %.2f  conf %.2f\n",
			c.RunAt.Format("2006-01-02 15:04"),
			c.Fused.TrueProgressPercent,
			sc(c.Fused.VarianceAlert.String()),
			c.Fused.CostPerformanceIndex,
			c.Fused.ConfidenceScore)
	}
	fmt.Println()
	return nil
}

// cmdAnalyze runs a fresh cycle for one project or the whole portfolio.
func (s *Shell) cmdAnalyze(args []string) error {
	if len(args) > 0 {
		p, err := s.project(args)
		if err != nil {
			return err
		}
		res, err := s.analyzer.AnalyzeProject(s.ctx, p.ID)
		if err != nil {
			return err
		}
		fmt.Println()
		s.printResult(res)
		fmt.Println()
		return nil
	}

	results, err := s.analyzer.AnalyzeAll(s.ctx)
	fmt.Println()
	for _, res := range results {
		s.printResult(res)
		fmt.Println()
	}
	return err
}

// cmdForecast shows the velocity engine's standalone completion forecast.
func (s *Shell) cmdForecast(args []string) error {
	p, err := s.project(args)
	if err != nil {
		return err
	}
	set, err := s.engineSet(p.ID)
	if err != nil {
		return err
	}
	cycle, err := s.latestCycle(p.ID)
	if err != nil {
		return err
	}

	forecast, err := set.Velocity().PredictCompletion(cycle.Digital, cycle.Digital.TotalStoryPoints, 0.95)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan(p.DisplayName()+" forecast"))
	fmt.Printf("  Remaining points   %d\n", forecast.RemainingPoints)
	if forecast.PredictedDate == nil {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("  %s\n", yellow("No velocity observations yet."))
	} else {
		fmt.Printf("  Predicted date     %s\n", forecast.PredictedDate.Format("2006-01-02"))
		fmt.Printf("  Adjusted velocity  %.2f pts/day\n", forecast.AdjustedVelocity)
		fmt.Printf("  Confidence         %.2f\n", forecast.Confidence)
	}
	fmt.Println()
	return nil
}

// cmdVelocity shows the velocity trend summary for one project.
func (s *Shell) cmdVelocity(args []string) error {
	p, err := s.project(args)
	if err != nil {
		return err
	}
	set, err := s.engineSet(p.ID)
	if err != nil {
		return err
	}
	cycle, err := s.latestCycle(p.ID)
	if err != nil {
		return err
	}

	trends := set.Velocity().Trends(s.cfg.VelocityWindow)
	health := set.Velocity().HealthMetrics()

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan(p.DisplayName()+" velocity"))
	fmt.Printf("  Sprint velocity   %.2f pts/sprint\n", cycle.Digital.SprintVelocity)
	fmt.Printf("  Commit frequency  %.2f/day\n", cycle.Digital.CommitFrequency)
	fmt.Printf("  PR merge rate     %.0f%%\n", cycle.Digital.PRMergeRate*100)
	fmt.Printf("  Observed velocity %.4f (spread %.4f over %.0f samples)\n",
		health["avg_velocity"], health["velocity_stability"], health["data_points"])
	fmt.Printf("  Trend             %+.4f (accel %+.5f, stability %.2f)\n",
		trends.VelocityTrend, trends.Acceleration, trends.StabilityScore)
	fmt.Println()
	return nil
}

// cmdRisks shows the delivery risk factors for one project.
func (s *Shell) cmdRisks(args []string) error {
	p, err := s.project(args)
	if err != nil {
		return err
	}
	set, err := s.engineSet(p.ID)
	if err != nil {
		return err
	}
	cycle, err := s.latestCycle(p.ID)
	if err != nil {
		return err
	}

	risks, err := set.Velocity().RiskFactors(cycle.Digital)
	if err != nil {
		return err
	}

	riskColor := func(v float64) string {
		switch {
		case v >= 0.66:
			return color.New(color.FgRed, color.Bold).Sprintf("%.2f", v)
		case v >= 0.33:
			return color.New(color.FgYellow).Sprintf("%.2f", v)
		default:
			return color.New(color.FgGreen).Sprintf("%.2f", v)
		}
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan(p.DisplayName()+" risk factors"))
	fmt.Printf("  Velocity instability  %s\n", riskColor(risks.VelocityInstability))
	fmt.Printf("  Completion rate       %s\n", riskColor(risks.CompletionRateRisk))
	fmt.Printf("  Resource utilization  %s\n", riskColor(risks.ResourceUtilizationRisk))
	fmt.Println()
	return nil
}

// cmdHealth dumps engine health metrics for the whole portfolio.
func (s *Shell) cmdHealth(args []string) error {
	report := s.analyzer.Registry().HealthReport()

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	for _, projectID := range s.analyzer.Registry().Projects() {
		fmt.Printf("\n%s\n", cyan(projectID))
		engines := report[projectID]

		names := make([]string, 0, len(engines))
		for name := range engines {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			fmt.Printf("  %s\n", bold(name))
			for _, key := range sortedKeys(engines[name]) {
				fmt.Printf("    %-22s %10.4f\n", key, engines[name][key])
			}
		}
	}
	fmt.Println()
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
