// Package cli contains the navsim command line, which drives the navigation behaviors against a
// simulated robot.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/benbjohnson/clock"
	"github.com/invopop/jsonschema"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	armfake "go.viam.com/fieldnav/components/arm/fake"
	"go.viam.com/fieldnav/components/base/fake"
	"go.viam.com/fieldnav/config"
	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/robot"
	"go.viam.com/fieldnav/services/navigation"
	"go.viam.com/fieldnav/spatialmath"
)

const (
	// Flags.
	flagConfig   = "config"
	flagDebug    = "debug"
	flagLogFile  = "log-file"
	flagAlliance = "alliance"
	flagX        = "x"
	flagY        = "y"
	flagTheta    = "theta"
	flagSide     = "side"
	flagRow      = "row"
	flagColumn   = "column"
	flagPlace    = "place"
	flagTimeout  = "timeout"
	flagHist     = "histogram"
)

// NewApp returns the navsim command line writing to out.
func NewApp(out io.Writer) *cli.App {
	poseFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.Float64Flag{Name: flagX, Usage: "x position in meters", Required: true},
			&cli.Float64Flag{Name: flagY, Usage: "y position in meters", Required: true},
			&cli.Float64Flag{Name: flagTheta, Usage: "heading in degrees", Value: 180},
		}
	}
	simFlags := func(extra ...cli.Flag) []cli.Flag {
		extra = append(extra,
			&cli.DurationFlag{
				Name:  flagTimeout,
				Usage: "give up after this much simulated time",
				Value: 30 * time.Second,
			},
			&cli.BoolFlag{
				Name:  flagHist,
				Usage: "plot the tracking error distribution",
			},
		)
		return append(extra, poseFlags()...)
	}

	return &cli.App{
		Name:   "navsim",
		Usage:  "drive the field navigation behaviors against a simulated robot",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagAlliance,
				Usage: "override the configured alliance (blue or red)",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "write logs to `FILE` instead of stdout",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the configuration file",
				Action: schemaAction,
			},
			{
				Name:   "zones",
				Usage:  "print the field zones for the alliance",
				Action: zonesAction,
			},
			{
				Name:   "classify",
				Usage:  "print the zone a position is in",
				Flags:  poseFlags(),
				Action: classifyAction,
			},
			{
				Name:  "leave",
				Usage: "leave the community from a position",
				Flags: simFlags(
					&cli.StringFlag{Name: flagSide, Usage: "exit side, top or bottom", Value: "top"},
				),
				Action: leaveAction,
			},
			{
				Name:  "goto",
				Usage: "drive to a scoring node from a position",
				Flags: simFlags(
					&cli.StringFlag{Name: flagRow, Usage: "grid: bottom, middle or top", Value: "bottom"},
					&cli.StringFlag{Name: flagColumn, Usage: "node in the grid: bottom, middle or top", Value: "bottom"},
					&cli.BoolFlag{Name: flagPlace, Usage: "raise the arm once there"},
				),
				Action: gotoAction,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}
	if alliance := c.String(flagAlliance); alliance != "" {
		cfg.Alliance = alliance
	}
	if c.Bool(flagDebug) {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate("robot"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns the simulation logger and a function to call once it is no longer used.
func newLogger(c *cli.Context) (logging.Logger, func() error) {
	path := c.String(flagLogFile)
	if path == "" {
		if c.Bool(flagDebug) {
			return logging.NewDebugLogger("navsim"), func() error { return nil }
		}
		return logging.NewLogger("navsim"), func() error { return nil }
	}
	logger := logging.NewBlankLogger("navsim")
	if !c.Bool(flagDebug) {
		logger.SetLevel(logging.INFO)
	}
	appender := logging.NewFileAppender(path)
	logger.AddAppender(appender)
	return logger, func() error {
		return multierr.Combine(logger.Sync(), appender.Close())
	}
}

func poseFromFlags(c *cli.Context) spatialmath.Pose {
	return spatialmath.NewPoseFromDegrees(c.Float64(flagX), c.Float64(flagY), c.Float64(flagTheta))
}

func schemaAction(c *cli.Context) error {
	// inline every type: several sections share the Config type name
	r := &jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&config.Config{})
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode config schema")
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

func zonesAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	alliance := cfg.AllianceValue()

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"#", "Zone", "Min", "Max"})
	for i, region := range field.Regions() {
		lower, upper := region.Rect.Min(), region.Rect.Max()
		if alliance == field.Red {
			// mirroring swaps the corners
			lower, upper = spatialmath.MirrorPoint(upper, field.Width, field.Height),
				spatialmath.MirrorPoint(lower, field.Width, field.Height)
		}
		t.AppendRow(table.Row{
			i + 1,
			region.Zone,
			fmt.Sprintf("(%.2f, %.2f)", lower.X, lower.Y),
			fmt.Sprintf("(%.2f, %.2f)", upper.X, upper.Y),
		})
	}
	t.AppendFooter(table.Row{"", alliance, "", ""})
	t.Render()
	return nil
}

func classifyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	pose := poseFromFlags(c)
	alliance := cfg.AllianceValue()
	fmt.Fprintf(c.App.Writer, "%s %s community=%t\n",
		field.ClassifyPose(pose, alliance), pose, field.InCommunity(pose.Point, alliance))
	return nil
}

func leaveAction(c *cli.Context) error {
	side, err := navigation.ExitSideFromString(c.String(flagSide))
	if err != nil {
		return err
	}
	sim, err := newSimulation(c)
	if err != nil {
		return err
	}
	defer sim.close(c.Context)

	sim.robot.LeaveCommunity.SetExitSide(side)
	if err := sim.robot.Scheduler.Schedule(c.Context, sim.robot.LeaveCommunity); err != nil {
		return err
	}
	if err := sim.run(c.Context, c.Duration(flagTimeout), sim.robot.LeaveCommunity.PathFollower); err != nil {
		return err
	}
	sim.report(c.App.Writer, sim.robot.LeaveCommunity.PathFollower, c.Bool(flagHist))
	return nil
}

func gotoAction(c *cli.Context) error {
	row, err := field.GridPositionFromString(c.String(flagRow))
	if err != nil {
		return err
	}
	column, err := field.GridPositionFromString(c.String(flagColumn))
	if err != nil {
		return err
	}
	sim, err := newSimulation(c)
	if err != nil {
		return err
	}
	defer sim.close(c.Context)

	if err := sim.robot.SelectNode(row, column); err != nil {
		return err
	}
	if !c.Bool(flagPlace) {
		sim.robot.GotoNode.Then(nil)
	}
	if err := sim.robot.Scheduler.Schedule(c.Context, sim.robot.GotoNode); err != nil {
		return err
	}
	if err := sim.run(c.Context, c.Duration(flagTimeout), sim.robot.GotoNode.PathFollower); err != nil {
		return err
	}
	sim.report(c.App.Writer, sim.robot.GotoNode.PathFollower, c.Bool(flagHist))
	if moves := sim.arm.Moves(); len(moves) > 0 {
		fmt.Fprintf(c.App.Writer, "arm at %.2f degrees for a %s\n",
			moves[len(moves)-1], sim.robot.GotoNode.Selection().Gamepiece)
	}
	return nil
}

// simulation is a robot built on fake hardware with a clock that only moves when stepped.
type simulation struct {
	robot  *robot.Robot
	base   *fake.Base
	arm    *armfake.Arm
	clk    *clock.Mock
	closer func() error
	ticks  int
	// trackingErrors holds the distance between the desired and the simulated pose, per tick.
	trackingErrors []float64
}

func newSimulation(c *cli.Context) (*simulation, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger, closer := newLogger(c)
	sim := &simulation{
		base:   fake.NewBase(poseFromFlags(c), logger.Sublogger("base")),
		arm:    armfake.NewArm(logger.Sublogger("arm")),
		clk:    clock.NewMock(),
		closer: closer,
	}
	sim.robot, err = robot.New(cfg, robot.Deps{
		Base:      sim.base,
		Localizer: sim.base,
		Arm:       sim.arm,
		Clock:     sim.clk,
	}, logger)
	if err != nil {
		return nil, multierr.Combine(err, closer())
	}
	return sim, nil
}

// run ticks the robot until nothing is scheduled, or fails once timeout of simulated time passes.
// While tracked is running its tracking error is recorded.
func (sim *simulation) run(ctx context.Context, timeout time.Duration, tracked *navigation.PathFollower) error {
	period := sim.robot.Config.LoopPeriod()
	for elapsed := time.Duration(0); len(sim.robot.Scheduler.Active()) > 0; elapsed += period {
		if elapsed > timeout {
			return errors.Errorf("%v still running after %s", sim.robot.Scheduler.Active(), timeout)
		}
		if err := sim.robot.Scheduler.RunOnce(ctx); err != nil {
			return err
		}
		if tracked.State() == navigation.StateRunning {
			sim.trackingErrors = append(sim.trackingErrors, sim.base.Pose().DistanceTo(tracked.LastDesiredPose()))
		}
		sim.base.Step(period)
		sim.clk.Add(period)
		sim.ticks++
		if sim.robot.PlaceGamepiece.State() == navigation.StateRunning {
			// the arm moves on its own goroutine in real time
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}

func (sim *simulation) report(out io.Writer, pf *navigation.PathFollower, plot bool) {
	traj, state := pf.Trajectory(), pf.State()
	alliance := sim.robot.Config.AllianceValue()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"#", "Pose", "Zone", "Distance", "Time"})
	if traj != nil {
		for i, knot := range traj.Knots() {
			t.AppendRow(table.Row{
				i,
				knot.Pose,
				field.ClassifyPose(knot.Pose, alliance),
				fmt.Sprintf("%.2f m", knot.Distance),
				knot.Time.Round(time.Millisecond),
			})
		}
	}
	final := sim.base.Pose()
	t.AppendFooter(table.Row{state, final, field.ClassifyPose(final, alliance), "", fmt.Sprintf("%d ticks", sim.ticks)})
	t.Render()

	summary, err := summarizeTracking(sim.trackingErrors)
	if err != nil {
		return
	}
	fmt.Fprintf(out, "tracking error: %s\n", summary)
	if plot {
		const bins, width = 10, 40
		if err := histogram.Fprint(out, histogram.Hist(bins, sim.trackingErrors), histogram.Linear(width)); err != nil {
			sim.robot.Logger.Warnw("failed to plot tracking error", "error", err)
		}
	}
}

// summarizeTracking describes the distribution of tracking errors, in meters.
func summarizeTracking(errs []float64) (string, error) {
	mean, err := stats.Mean(errs)
	if err != nil {
		return "", err
	}
	p95, err := stats.Percentile(errs, 95)
	if err != nil {
		return "", err
	}
	most, err := stats.Max(errs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mean %.3f m, p95 %.3f m, max %.3f m", mean, p95, most), nil
}

func (sim *simulation) close(ctx context.Context) {
	if err := sim.robot.Close(ctx); err != nil {
		sim.robot.Logger.Warnw("failed to close robot", "error", err)
	}
	if err := sim.closer(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
