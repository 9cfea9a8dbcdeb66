package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/franckalain/nutrisnap/internal/config"
	"github.com/franckalain/nutrisnap/internal/database"
	"github.com/franckalain/nutrisnap/internal/estimate"
	"github.com/franckalain/nutrisnap/internal/ml"
	"github.com/franckalain/nutrisnap/internal/models"
	"github.com/franckalain/nutrisnap/internal/server"
	"github.com/franckalain/nutrisnap/internal/store"
)

var configPath string

func main() {
	config.LoadEnv()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nutrisnap",
		Short:         "Meal logging with model-estimated nutrients",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.GetConfigPath(), "path to configuration file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(estimateCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(todayCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(clearTodayCmd())
	return rootCmd
}

// app is the set of components a command works with
type app struct {
	cfg   *config.Config
	kv    database.KV
	store *store.MealStore
	model ml.Model
}

func (a *app) Close() {
	if c, ok := a.model.(io.Closer); ok {
		c.Close()
	}
	if a.kv != nil {
		a.kv.Close()
	}
}

// openApp loads the configuration and the meal log. The model is only
// set up when withModel is true.
func openApp(ctx context.Context, withModel bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Server.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	a := &app{cfg: cfg}
	a.kv, err = database.Open(ctx, cfg.DatabaseConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a.store = store.New(a.kv, cfg.Store.Key)
	if err := a.store.Load(ctx); err != nil {
		// The log starts empty rather than refusing to run
		log.Printf("Failed to load meal history: %v", err)
	}

	if withModel {
		a.model, err = ml.NewModel(cfg.ML.Type, cfg.ML.Config)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create ML model: %w", err)
		}
		if err := a.model.Load(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("load ML model: %w", err)
		}
	}
	return a, nil
}

func (a *app) estimator() *estimate.Service {
	return estimate.New(a.model, estimate.Options{
		Timeout:       a.cfg.Timeout(),
		MaxToolRounds: a.cfg.ML.MaxToolRounds,
		Region:        a.cfg.ML.Region,
	})
}

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the websocket and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			if port == "" {
				port = a.cfg.Server.Port
			}
			srv := server.New(a.store, a.estimator(), a.cfg.Server.Debug)
			return srv.Start(port, a.cfg.Server.StaticDir)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (overrides config)")
	return cmd
}

func estimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [description]",
		Short: "Estimate the nutrients of a meal without logging it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			description, err := server.ValidateDescription(strings.Join(args, " "))
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprint(out, "Estimating... ")
			est, err := a.estimator().Estimate(cmd.Context(), description)
			if err != nil {
				fmt.Fprintln(out, "failed")
				return err
			}
			fmt.Fprintln(out, "done")

			printNutrients(out, est.Nutrients)
			if est.Explanation != "" {
				fmt.Fprintf(out, "\n%s\n", est.Explanation)
			}
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log [description]",
		Short: "Estimate a meal and add it to the log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			description, err := server.ValidateDescription(strings.Join(args, " "))
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			est, err := a.estimator().Estimate(cmd.Context(), description)
			if err != nil {
				return err
			}

			meal := models.NewMeal(uuid.New().String(), description, time.Now(), est)
			if err := a.store.Append(cmd.Context(), *meal); err != nil {
				if !errors.Is(err, store.ErrPersist) {
					return err
				}
				fmt.Fprintf(out, "warning: %v\n", err)
			}

			fmt.Fprintf(out, "Logged meal: %s\n", shortID(meal.ID))
			printNutrients(out, meal.Nutrients)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged meals, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			meals := a.store.List()
			if len(meals) == 0 {
				fmt.Fprintln(out, "No meals logged")
				return nil
			}
			if limit > 0 && len(meals) > limit {
				meals = meals[:limit]
			}
			for _, m := range meals {
				printMeal(out, m)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max meals to show")
	return cmd
}

func todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's meals and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			day, meals := a.store.Today(now)
			week := a.store.Week(now)

			fmt.Fprintf(out, "Today (%s): %d meals\n", day.Date, day.Count)
			printNutrients(out, day.Nutrients)
			fmt.Fprintf(out, "This week: %d meals, %.0f kcal\n", week.Count, week.Calories)
			if len(meals) > 0 {
				fmt.Fprintln(out)
			}
			for _, m := range meals {
				printMeal(out, m)
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a meal by ID or unique ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := resolveID(a.store.List(), args[0])
			if err != nil {
				return err
			}
			if err := a.store.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted meal: %s\n", shortID(id))
			return nil
		},
	}
}

func clearTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-today",
		Short: "Delete all meals logged today",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.store.ClearDay(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d meals\n", n)
			return nil
		},
	}
}

// resolveID finds the single meal whose ID starts with prefix
func resolveID(meals []models.Meal, prefix string) (string, error) {
	var found string
	for _, m := range meals {
		if m.ID == prefix {
			return m.ID, nil
		}
		if strings.HasPrefix(m.ID, prefix) {
			if found != "" {
				return "", fmt.Errorf("ambiguous meal ID prefix: %s", prefix)
			}
			found = m.ID
		}
	}
	if found == "" {
		return "", fmt.Errorf("meal not found: %s", prefix)
	}
	return found, nil
}

func printNutrients(w io.Writer, n models.Nutrients) {
	fmt.Fprintf(w, "  Calories: %.0f kcal\n", n.Calories)
	fmt.Fprintf(w, "  Protein:  %.1f g\n", n.Protein)
	fmt.Fprintf(w, "  Carbs:    %.1f g\n", n.Carbs)
	fmt.Fprintf(w, "  Fat:      %.1f g\n", n.Fat)
}

func printMeal(w io.Writer, m models.Meal) {
	fmt.Fprintf(w, "%s  %s  %5.0f kcal  %s\n",
		shortID(m.ID),
		m.Time(time.Local).Format("2006-01-02 15:04"),
		m.Calories,
		truncate(m.Description, 50))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
