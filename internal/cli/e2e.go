package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/hungpv1995/blog-frontkit/internal/blogapi"
	"github.com/hungpv1995/blog-frontkit/internal/config"
	"github.com/hungpv1995/blog-frontkit/internal/e2e"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var e2eCmd = &cobra.Command{
	Use:   "e2e",
	Short: "Browser scenarios against a running blog",
}

var e2eListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available scenarios",
	Args:  cobra.NoArgs,
	RunE:  runE2EList,
}

var e2eRunCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run scenarios, all of them when none are named",
	Long: `Runs the named scenarios in order against E2E_BASE_URL. Scenarios that
need a browser or admin credentials are skipped when those are missing.
The command fails when any scenario fails.`,
	RunE: runE2ERun,
}

func init() {
	e2eRunCmd.Flags().String("base-url", "", "blog under test (defaults to E2E_BASE_URL)")
	e2eRunCmd.Flags().Bool("no-browser", false, "run without Chrome; browser scenarios are skipped")
	e2eRunCmd.Flags().Bool("headed", false, "show the browser window")
	e2eRunCmd.Flags().Duration("timeout", 0, "per-scenario timeout (defaults to E2E_TIMEOUT)")

	e2eCmd.AddCommand(e2eListCmd)
	e2eCmd.AddCommand(e2eRunCmd)
	rootCmd.AddCommand(e2eCmd)
}

func runE2EList(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, s := range e2e.All() {
		fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
	}
	return w.Flush()
}

func runE2ERun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	scenarios, err := e2e.Select(e2e.All(), args)
	if err != nil {
		return err
	}

	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	headed, _ := cmd.Flags().GetBool("headed")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = cfg.E2ETimeout
	}

	api, err := newBlogClient(cfg, baseURL, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &e2e.Env{
		API:      api,
		Admin:    e2e.Credentials{Email: cfg.AdminEmail, Password: cfg.AdminPassword},
		PageSize: cfg.PageSize,
		Log:      logger,
	}
	if !noBrowser {
		launcher, err := e2e.NewLauncher(ctx, baseURL, e2e.BrowserConfig{
			Headless:   cfg.Headless && !headed,
			ChromePath: cfg.ChromePath,
		}, logger)
		if err != nil {
			return fmt.Errorf("%w\nUse --no-browser to run without Chrome", err)
		}
		defer launcher.Close()
		env.Browsers = launcher
	}

	reporter := newReporter(cmd.ErrOrStderr())
	reporter.Start(len(scenarios))
	done := 0
	runner := e2e.NewRunner(env,
		e2e.WithScenarioTimeout(timeout),
		e2e.WithResultHook(func(res e2e.Result) {
			done++
			reporter.Update(done, res.Scenario)
		}),
	)

	rep := runner.Run(ctx, scenarios)
	reporter.Finish()

	printReport(cmd.OutOrStdout(), rep)
	return rep.Err()
}

func printReport(out io.Writer, rep e2e.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSTATUS\tDURATION\tDETAIL")
	for _, res := range rep.Results {
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", res.Scenario, res.Status, res.Duration.Round(time.Millisecond), detail)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d passed, %d failed, %d skipped in %s\n",
		rep.Count(e2e.StatusPass), rep.Count(e2e.StatusFail), rep.Count(e2e.StatusSkip),
		rep.Duration.Round(time.Millisecond))
}

func newBlogClient(cfg *config.Config, baseURL string, logger *zap.SugaredLogger) (*blogapi.Client, error) {
	api, err := blogapi.New(baseURL,
		blogapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		blogapi.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating blog client: %w", err)
	}
	return api, nil
}
