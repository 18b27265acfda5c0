package advisor

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kilianp07/cogen/core/model"
	"github.com/kilianp07/cogen/core/plant"
)

// Recommendation codes.
const (
	CodeSolverStatus    = "solver_status"
	CodeSavings         = "savings"
	CodeBoilerShutdown  = "boiler_shutdown"
	CodeBoilerExpensive = "boiler_expensive"
	CodePeakAlert       = "peak_alert"
	CodePeakShaving     = "peak_shaving"
	CodeGridOptimized   = "grid_optimized"
	CodeGridCapacity    = "grid_capacity"
	CodePressureRisk    = "pressure_risk"
	CodePressureStable  = "pressure_stable"
	CodeFreeSteam       = "free_steam"
	CodeNoActiveGTA     = "no_active_gta"
	CodePowerCapacity   = "power_capacity"
	CodeSteamCapacity   = "steam_capacity"
	CodeOffPeak         = "off_peak"
)

// CodeGeneratorCapacity is the code of the near-capacity rule of a generator.
func CodeGeneratorCapacity(id model.GeneratorID) string { return fmt.Sprintf("gta%d_capacity", int(id)) }

// CodeGeneratorSetpoint is the code of the setpoint rule of a generator.
func CodeGeneratorSetpoint(id model.GeneratorID) string { return fmt.Sprintf("gta%d_setpoint", int(id)) }

var printer = message.NewPrinter(language.English)

func defaultRules(pl plant.Plant) []Rule {
	rules := []Rule{solverStatusRule(), savingsRule()}
	for _, g := range pl.Generators {
		rules = append(rules, generatorCapacityRule(g.ID), generatorSetpointRule(g.ID))
	}
	return append(rules,
		boilerShutdownRule(),
		boilerExpensiveRule(),
		peakAlertRule(),
		peakShavingRule(),
		gridOptimizedRule(),
		gridCapacityRule(),
		pressureRiskRule(),
		pressureStableRule(),
		freeSteamRule(),
		noActiveGeneratorRule(),
		powerCapacityRule(),
		steamCapacityRule(),
		offPeakRule(),
	)
}

func solverStatusRule() Rule {
	return Rule{
		Name:  CodeSolverStatus,
		Match: func(c Context) bool { return !c.Optimal() },
		Build: func(c Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodeSolverStatus,
				Category:    model.CategorySolver,
				Icon:        "🔴",
				Title:       "No Optimal Dispatch Found",
				Instruction: fmt.Sprintf("Solver status: %s. Keep current setpoints and review demand and constraints before changing plant operation.", c.Solution.Status),
				SafetyCheck: "Do not apply zeroed setpoints. Confirm demand figures with production planning.",
				Impact:      "No cost-optimal plan available",
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func savingsRule() Rule {
	return Rule{
		Name: CodeSavings,
		Match: func(c Context) bool {
			return c.Optimal() && c.Solution.Savings > c.Thresholds.MinSavings
		},
		Build: func(c Context) model.Recommendation {
			s := c.Solution.Savings
			return model.Recommendation{
				Code:        CodeSavings,
				Category:    model.CategorySavings,
				Icon:        "💰",
				Title:       "Optimization Savings Identified",
				Instruction: printer.Sprintf("Total potential savings: %.0f DH/hr (%.0f DH/year) vs baseline operation.", s, s*c.Thresholds.HoursPerYear),
				Impact:      printer.Sprintf("+%.0f DH/hr", s),
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func setpoint(c Context, id model.GeneratorID) model.GeneratorSetpoint {
	g, _ := c.Solution.Setpoint(id)
	return g
}

func nearCapacity(c Context, g model.GeneratorSetpoint) bool {
	return g.Power > c.Thresholds.GeneratorPower && g.Admission > c.Thresholds.HighAdmission
}

func generatorCapacityRule(id model.GeneratorID) Rule {
	return Rule{
		Name: CodeGeneratorCapacity(id),
		Match: func(c Context) bool {
			return c.Optimal() && nearCapacity(c, setpoint(c, id))
		},
		Build: func(c Context) model.Recommendation {
			g := setpoint(c, id)
			return model.Recommendation{
				Code:        CodeGeneratorCapacity(id),
				Category:    model.CategoryGenerator,
				Icon:        "⚙️",
				Title:       fmt.Sprintf("Push %s to Capacity", id),
				Instruction: fmt.Sprintf("Increase Admission Valve setpoint to %.1f T/h. Ramp slowly over 5 minutes to avoid thermal shock.", g.Admission),
				SafetyCheck: "Monitor Condenser Vacuum: High flow may degrade vacuum. Ensure Sea Water Pumps are running at full capacity.",
				Impact:      fmt.Sprintf("%.1f MW generation", g.Power),
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func generatorSetpointRule(id model.GeneratorID) Rule {
	return Rule{
		Name: CodeGeneratorSetpoint(id),
		Match: func(c Context) bool {
			g := setpoint(c, id)
			return c.Optimal() && !nearCapacity(c, g) &&
				g.Power > c.Thresholds.GeneratorPower && g.Admission > c.Thresholds.MinAdmission
		},
		Build: func(c Context) model.Recommendation {
			g := setpoint(c, id)
			return model.Recommendation{
				Code:        CodeGeneratorSetpoint(id),
				Category:    model.CategoryGenerator,
				Icon:        "⚙️",
				Title:       fmt.Sprintf("Adjust %s Setpoint", id),
				Instruction: fmt.Sprintf("Set Admission to %.1f T/h and Extraction to %.1f T/h. Monitor ramp rate.", g.Admission, g.Extraction),
				Impact:      fmt.Sprintf("%.1f MW, %.1f T/h steam", g.Power, g.Extraction),
				Priority:    model.PriorityMedium,
			}
		},
	}
}

func boilerShutdown(c Context) bool {
	return c.Solution.Baseline.BoilerOutput > c.Thresholds.BoilerBaseline && c.Solution.BoilerOutput < c.Thresholds.BoilerIdle
}

func boilerShutdownRule() Rule {
	return Rule{
		Name:  CodeBoilerShutdown,
		Match: func(c Context) bool { return c.Optimal() && boilerShutdown(c) },
		Build: func(c Context) model.Recommendation {
			avoided := c.Solution.Baseline.BoilerOutput * c.Costs.Boiler
			return model.Recommendation{
				Code:        CodeBoilerShutdown,
				Category:    model.CategoryBoiler,
				Icon:        "🛑",
				Title:       "Shutdown Auxiliary Boiler",
				Instruction: "Ramp down Boiler firing rate to 0 over 10 minutes. Switch steam supply to Sulfur Recovery + GTA extraction.",
				SafetyCheck: fmt.Sprintf("Pressure Watch: Verify MP Header maintains > %.1f bar on Sulfur steam alone. Install pressure transmitter PT-201 as backup.", c.Thresholds.MinPressure),
				Impact:      printer.Sprintf("Saves %.0f DH/hr (%.0f DH/T fuel avoided)", avoided, c.Costs.Boiler),
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func boilerExpensiveRule() Rule {
	return Rule{
		Name: CodeBoilerExpensive,
		Match: func(c Context) bool {
			return c.Optimal() && !boilerShutdown(c) && c.Solution.BoilerOutput > c.Thresholds.BoilerHigh
		},
		Build: func(c Context) model.Recommendation {
			b := c.Solution.BoilerOutput
			return model.Recommendation{
				Code:        CodeBoilerExpensive,
				Category:    model.CategoryBoiler,
				Icon:        "⚠️",
				Title:       "Expensive Steam Source Active",
				Instruction: fmt.Sprintf("Auxiliary Boiler running at %.1f T/h. Consider increasing GTA extraction or sulfur recovery to reduce boiler load.", b),
				Impact:      printer.Sprintf("%.0f DH/hr cost (%.0f DH/T)", b*c.Costs.Boiler, c.Costs.Boiler),
				Priority:    model.PriorityMedium,
			}
		},
	}
}

func peakAlertRule() Rule {
	return Rule{
		Name: CodePeakAlert,
		Match: func(c Context) bool {
			return c.Optimal() && c.Period == model.PeriodPeak && c.Solution.GridImport > c.Thresholds.PeakGrid
		},
		Build: func(c Context) model.Recommendation {
			grid := c.Solution.GridImport
			return model.Recommendation{
				Code:        CodePeakAlert,
				Category:    model.CategoryTariff,
				Icon:        "⚡",
				Title:       fmt.Sprintf("Peak Tariff Alert (%.3f DH/kWh)", c.Solution.GridPrice),
				Instruction: fmt.Sprintf("Maximize internal generation. Current grid import: %.1f MW. If GTAs are maxed out, request load shedding from Downstream Plants (CAP, PTE).", grid),
				SafetyCheck: "Coordination Required: Notify production planning before load reduction.",
				Impact:      printer.Sprintf("Current import costing %.0f DH/hr at peak rate", c.Solution.Cost.Grid),
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func peakShavingRule() Rule {
	return Rule{
		Name: CodePeakShaving,
		Match: func(c Context) bool {
			return c.Optimal() && c.Period == model.PeriodPeak && c.Solution.GridImport <= c.Thresholds.PeakGrid
		},
		Build: func(c Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodePeakShaving,
				Category:    model.CategoryTariff,
				Icon:        "✅",
				Title:       "Peak Shaving Successful",
				Instruction: fmt.Sprintf("Grid import minimized to %.1f MW during peak hours. Maintain current GTA loading.", c.Solution.GridImport),
				Impact:      "Avoiding expensive peak charges",
				Priority:    model.PriorityLow,
			}
		},
	}
}

func gridReduction(c Context) float64 {
	return c.Solution.Baseline.GridImport - c.Solution.GridImport
}

func gridOptimizedRule() Rule {
	return Rule{
		Name: CodeGridOptimized,
		Match: func(c Context) bool {
			return c.Optimal() && gridReduction(c) > c.Thresholds.GridReduction
		},
		Build: func(c Context) model.Recommendation {
			r := gridReduction(c)
			avoided := r * c.Costs.GridCost(c.Solution.GridPrice)
			return model.Recommendation{
				Code:        CodeGridOptimized,
				Category:    model.CategoryGrid,
				Icon:        "✅",
				Title:       "Grid Import Optimized",
				Instruction: fmt.Sprintf("Reduced grid dependency by %.1f MW through optimal GTA dispatch.", r),
				Impact:      printer.Sprintf("%.0f DH/hr savings", avoided),
				Priority:    model.PriorityMedium,
			}
		},
	}
}

func gridCapacityRule() Rule {
	return Rule{
		Name: CodeGridCapacity,
		Match: func(c Context) bool {
			return c.Optimal() && gridReduction(c) <= c.Thresholds.GridReduction &&
				c.Solution.GridImport > c.Thresholds.GridCeilingRatio*c.Limits.MaxGridImport
		},
		Build: func(c Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodeGridCapacity,
				Category:    model.CategoryGrid,
				Icon:        "🔴",
				Title:       "Grid Capacity Warning",
				Instruction: fmt.Sprintf("Grid import at %.1f MW (near %.0f MW substation limit). Increase GTA generation immediately.", c.Solution.GridImport, c.Limits.MaxGridImport),
				SafetyCheck: "Risk of circuit breaker trip if exceeded. Contact electrical substation operator.",
				Impact:      "Critical capacity issue",
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func pressureRiskRule() Rule {
	return Rule{
		Name:  CodePressureRisk,
		Match: func(c Context) bool { return c.Optimal() && c.Pressure() < c.Thresholds.MinPressure },
		Build: func(c Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodePressureRisk,
				Category:    model.CategoryPressure,
				Icon:        "⚠️",
				Title:       "MP Pressure Risk",
				Instruction: fmt.Sprintf("Predicted MP pressure: %.1f bar (below %.1f bar minimum). Increase steam production immediately.", c.Pressure(), c.Thresholds.MinPressure),
				SafetyCheck: "GTA Trip Risk: Low MP pressure may cause turbine protective trip. Monitor PI-150 continuously.",
				Impact:      "Process reliability at risk",
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func pressureStableRule() Rule {
	return Rule{
		Name:  CodePressureStable,
		Match: func(c Context) bool { return c.Optimal() && c.Pressure() >= c.Thresholds.MinPressure },
		Build: func(c Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodePressureStable,
				Category:    model.CategoryPressure,
				Icon:        "✅",
				Title:       "Process Reliability: Stable",
				Instruction: fmt.Sprintf("MP Header pressure stable at %.1f bar (above %.1f bar minimum).", c.Pressure(), c.Thresholds.MinPressure),
				Impact:      "Safe operation confirmed",
				Priority:    model.PriorityLow,
			}
		},
	}
}

func freeSteamRule() Rule {
	return Rule{
		Name: CodeFreeSteam,
		Match: func(c Context) bool {
			return c.Optimal() && c.Solution.FreeSteam > c.Thresholds.FreeSteamHigh
		},
		Build: func(c Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodeFreeSteam,
				Category:    model.CategoryFreeSteam,
				Icon:        "♻️",
				Title:       "Free Steam Maximized",
				Instruction: fmt.Sprintf("Utilizing %.1f T/h from Sulfur Recovery (essentially free at %.0f DH/T). Maintain sulfur plant operations.", c.Solution.FreeSteam, c.Costs.FreeSteam),
				Impact:      "Base load steam secured",
				Priority:    model.PriorityLow,
			}
		},
	}
}

func noActiveGeneratorRule() Rule {
	return Rule{
		Name: CodeNoActiveGTA,
		Match: func(c Context) bool {
			if !c.Optimal() {
				return false
			}
			for _, g := range c.Solution.Generators {
				if g.Power > c.Thresholds.RunningPower {
					return false
				}
			}
			return true
		},
		Build: func(Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodeNoActiveGTA,
				Category:    model.CategoryCapacity,
				Icon:        "🔴",
				Title:       "No GTAs Running",
				Instruction: "Start at least one GTA to enable cogeneration and reduce grid dependency.",
				SafetyCheck: "Startup Procedure: Follow GTA startup checklist. Verify HP steam availability before admission valve opening.",
				Impact:      "Missing cogeneration opportunity",
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func powerCapacityRule() Rule {
	return Rule{
		Name:  CodePowerCapacity,
		Match: func(c Context) bool { return c.ElectricityDemand > c.Limits.MaxTotalPower },
		Build: func(c Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodePowerCapacity,
				Category:    model.CategoryCapacity,
				Icon:        "🔴",
				Title:       "Demand Exceeds Plant Capacity",
				Instruction: fmt.Sprintf("Electrical demand %.0f MW exceeds maximum capacity %.0f MW. Implement load shedding of %.0f MW.", c.ElectricityDemand, c.Limits.MaxTotalPower, c.ElectricityDemand-c.Limits.MaxTotalPower),
				SafetyCheck: "Emergency Protocol: Contact production manager for non-critical load shutdown authorization.",
				Impact:      "Infeasible operation",
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func steamCapacityRule() Rule {
	return Rule{
		Name:  CodeSteamCapacity,
		Match: func(c Context) bool { return c.SteamDemand > c.Limits.MaxTotalSteam },
		Build: func(c Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodeSteamCapacity,
				Category:    model.CategoryCapacity,
				Icon:        "🔴",
				Title:       "Steam Demand Infeasible",
				Instruction: fmt.Sprintf("Steam demand %.0f T/h exceeds plant capacity %.0f T/h. Reduce demand by %.0f T/h.", c.SteamDemand, c.Limits.MaxTotalSteam, c.SteamDemand-c.Limits.MaxTotalSteam),
				Impact:      "Physical constraint violation",
				Priority:    model.PriorityHigh,
			}
		},
	}
}

func offPeakRule() Rule {
	return Rule{
		Name:  CodeOffPeak,
		Match: func(c Context) bool { return c.Period == model.PeriodOffPeak },
		Build: func(c Context) model.Recommendation {
			return model.Recommendation{
				Code:        CodeOffPeak,
				Category:    model.CategoryTariff,
				Icon:        "🟢",
				Title:       "Off-Peak Advantage Active",
				Instruction: fmt.Sprintf("Grid electricity at %.3f DH/kWh (cheapest rate). Optimal time for energy-intensive operations.", c.Solution.GridPrice),
				Impact:      "Favorable tariff window",
				Priority:    model.PriorityLow,
			}
		},
	}
}
