package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/evsubsidy/internal/app"
	"github.com/JonMunkholm/evsubsidy/internal/dataset"
	"github.com/JonMunkholm/evsubsidy/internal/source"
)

// buildResult is the JSON output of the build command.
type buildResult struct {
	Complete      string `json:"complete"`
	Light         string `json:"light"`
	Vehicles      int    `json:"vehicles"`
	Regions       int    `json:"regions"`
	Manufacturers int    `json:"manufacturers"`
	Overrides     int    `json:"overrides"`
}

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <input>",
		Short: "Build the complete and light dataset documents from per-region rows",
		Long: `Build reads per-region subsidy rows, either a crawl result (JSON object of
region -> vehicle list) or a CSV export with the standard Korean headers, and
writes ev_complete_data_YYYYMMDD.json (with vehicle-region subsidies) and
ev_data_final_YYYYMMDD.json (without) into the output directory.

The input may be a local path or an http(s) URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")
			encoding, _ := cmd.Flags().GetString("encoding")
			year, _ := cmd.Flags().GetInt("year")
			rawDate, _ := cmd.Flags().GetString("date")

			now := time.Now()
			if rawDate != "" {
				d, err := time.Parse("20060102", rawDate)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYYMMDD", rawDate)
				}
				now = d
			}

			rows, err := source.ReadRows(cmd.Context(), args[0], source.Options{
				Fetcher:  app.Fetcher(c.cfg, nil),
				Encoding: encoding,
			})
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("%s: %w", args[0], source.ErrEmptyDataset)
			}

			opts := []dataset.Option{dataset.WithClock(func() time.Time { return now })}
			if year > 0 {
				opts = append(opts, dataset.WithYear(year))
			}
			ds := dataset.NewBuilder(opts...).Build(rows)
			if ds.Empty() {
				return errors.New("no usable vehicle rows: every row lacks a manufacturer, model or national subsidy")
			}

			files, err := dataset.WriteFiles(outDir, ds, now)
			if err != nil {
				return err
			}

			res := buildResult{
				Complete:      files.Complete,
				Light:         files.Light,
				Vehicles:      len(ds.Vehicles),
				Regions:       len(ds.Regions),
				Manufacturers: len(ds.Manufacturers),
				Overrides:     ds.Overrides.Len(),
			}
			if wantJSON(cmd) {
				return printJSON(cmd, res)
			}
			return printTable(cmd.OutOrStdout(), [][]string{
				{"complete", res.Complete},
				{"light", res.Light},
				{"vehicles", fmt.Sprint(res.Vehicles)},
				{"regions", fmt.Sprint(res.Regions)},
				{"manufacturers", fmt.Sprint(res.Manufacturers)},
				{"overrides", fmt.Sprint(res.Overrides)},
			})
		},
	}
	cmd.Flags().StringP("out", "o", c.cfg.Data.BuildDir, "Output directory")
	cmd.Flags().String("encoding", c.cfg.Data.CSVEncoding, "CSV text encoding: utf-8 or euc-kr")
	cmd.Flags().Int("year", 0, "Subsidy year recorded in the metadata (default: builder default)")
	cmd.Flags().String("date", "", "Build date YYYYMMDD used in file names (default: today)")
	return cmd
}
