package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/synthpop/internal/store"
	"github.com/sells-group/synthpop/internal/synth"
)

var (
	runParallel bool
	runMaxGeogs int
	runSave     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Synthesize populations for all geographies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rec, err := buildRecipe(ctx, cfg)
		if err != nil {
			return err
		}
		s := buildSynthesizer(cfg, runMaxGeogs)

		start := time.Now()
		var res *synth.Result
		if runParallel {
			res, err = s.SynthesizeAllParallel(ctx, rec, nil)
		} else {
			res, err = s.SynthesizeAll(ctx, rec, nil)
		}
		if err != nil {
			return eris.Wrap(err, "run synthesis")
		}

		fmt.Printf("Synthesized %d households and %d persons across %d geographies in %s\n",
			len(res.Households.Rows), len(res.Persons.Rows), len(res.FitQuality), time.Since(start).Round(time.Millisecond))
		for _, f := range res.Failures {
			fmt.Printf("FAILED %s: %v\n", f.Geog, f.Err)
		}

		if runSave {
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			run := store.Run{ID: uuid.New().String(), CreatedAt: time.Now().UTC(), Result: res}
			if err := st.SaveRun(ctx, run); err != nil {
				return eris.Wrap(err, "save run")
			}
			zap.L().Info("run saved", zap.String("run_id", run.ID))
			fmt.Printf("Saved as run %s\n", run.ID)
		}

		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "fit geographies on a bounded worker pool")
	runCmd.Flags().IntVar(&runMaxGeogs, "max-geographies", 0, "cap the number of geographies processed (0 = all)")
	runCmd.Flags().BoolVar(&runSave, "save", false, "persist the run to the configured store")
	rootCmd.AddCommand(runCmd)
}
