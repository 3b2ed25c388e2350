package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/evsubsidy/internal/core"
)

// calculateExamples name vehicles of the embedded dataset so they resolve
// without any data files.
var calculateExamples = [][]string{
	{"--price", "5500", "--vehicle", "기아_EV6 롱레인지 2WD 19인치", "--region", "서울특별시"},
	{"--price", "6,000만원", "--manufacturer", "현대자동차", "--model", "아이오닉6 롱레인지 2WD 18인치", "--region", "부산광역시", "--tax"},
}

// exampleLines renders argument lists as cobra example lines.
func exampleLines(command string, examples [][]string) string {
	lines := make([]string, len(examples))
	for i, args := range examples {
		quoted := make([]string, len(args))
		for j, a := range args {
			if strings.ContainsAny(a, " ,") {
				a = fmt.Sprintf("%q", a)
			}
			quoted[j] = a
		}
		lines[i] = "  evcalc " + command + " " + strings.Join(quoted, " ")
	}
	return strings.Join(lines, "\n")
}

// vehicleFlags adds the three ways of naming a vehicle.
func vehicleFlags(cmd *cobra.Command) {
	cmd.Flags().String("vehicle", "", "Vehicle ID, e.g. 기아_EV6")
	cmd.Flags().String("manufacturer", "", "Manufacturer, used with --model")
	cmd.Flags().String("model", "", "Model name, used with --manufacturer")
}

func vehicleRequest(cmd *cobra.Command) core.CalculationRequest {
	id, _ := cmd.Flags().GetString("vehicle")
	manufacturer, _ := cmd.Flags().GetString("manufacturer")
	model, _ := cmd.Flags().GetString("model")
	region, _ := cmd.Flags().GetString("region")
	return core.CalculationRequest{
		VehicleID:    id,
		Manufacturer: manufacturer,
		Model:        model,
		Region:       strings.TrimSpace(region),
	}
}

func (c *CLI) newCalculateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate the subsidy of a vehicle in a region at a price",
		Example: exampleLines("calculate", calculateExamples),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rawPrice, _ := cmd.Flags().GetString("price")
			price, err := core.ParsePrice(rawPrice)
			if err != nil {
				return err
			}

			svc, err := c.service(cmd)
			if err != nil {
				return err
			}

			req := vehicleRequest(cmd)
			req.Price = price
			req.IncludeTax, _ = cmd.Flags().GetBool("tax")

			calc, err := svc.Calculate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd, calc)
			}
			return printCalculation(cmd.OutOrStdout(), calc)
		},
	}
	cmd.Flags().String("price", "", "Purchase price in 만원")
	cmd.Flags().String("region", "", "Region name, e.g. 서울특별시")
	cmd.Flags().Bool("tax", false, "Include the acquisition tax and final price")
	vehicleFlags(cmd)
	return cmd
}

func (c *CLI) newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the national and local subsidy of a vehicle in a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := vehicleRequest(cmd)
			id := req.ResolveVehicleID()
			if id == "" {
				return core.ErrVehicleRequired
			}

			svc, err := c.service(cmd)
			if err != nil {
				return err
			}

			res := svc.Resolve(cmd.Context(), id, req.Region)
			if wantJSON(cmd) {
				return printJSON(cmd, res)
			}
			return printTable(cmd.OutOrStdout(), [][]string{
				{"vehicle", res.VehicleID},
				{"region", res.Region},
				{"national", manwon(res.NationalSubsidy)},
				{"local", manwon(res.LocalSubsidy)},
				{"match", string(res.Match)},
			})
		},
	}
	cmd.Flags().String("region", "", "Region name, e.g. 서울특별시")
	vehicleFlags(cmd)
	return cmd
}

func (c *CLI) newRegionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List regions in directory order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}

			regions := svc.Regions(cmd.Context())
			if raw, _ := cmd.Flags().GetString("group"); raw != "" {
				g, ok := core.ParseGroup(raw)
				if !ok {
					return fmt.Errorf("%w: %q", core.ErrUnknownGroup, raw)
				}
				regions = svc.RegionsByGroup(cmd.Context(), g)
			}

			if wantJSON(cmd) {
				return printJSON(cmd, nonNil(regions))
			}
			rows := [][]string{{"REGION", "GROUP", "AVG", "MIN", "MAX", "VEHICLES"}}
			for _, r := range regions {
				rows = append(rows, []string{
					r.Region, r.Group.Label(),
					fmt.Sprint(r.AvgSubsidy), fmt.Sprint(r.MinSubsidy), fmt.Sprint(r.MaxSubsidy),
					fmt.Sprint(r.VehicleCount),
				})
			}
			return printTable(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().String("group", "", "Only this group: capital-area, metro-city, province (or 수도권, 광역시, 도)")
	return cmd
}

func (c *CLI) newVehiclesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicles",
		Short: "List or search vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}

			if grouped, _ := cmd.Flags().GetBool("by-manufacturer"); grouped {
				groups := svc.VehiclesByManufacturer(cmd.Context())
				if wantJSON(cmd) {
					return printJSON(cmd, groups)
				}
				out := cmd.OutOrStdout()
				for _, g := range groups {
					fmt.Fprintf(out, "%s (%d)\n", g.Manufacturer, len(g.Vehicles))
					for _, v := range g.Vehicles {
						fmt.Fprintf(out, "  %s\t%s\n", v.Model, manwon(v.NationalSubsidy))
					}
				}
				return nil
			}

			manufacturer, _ := cmd.Flags().GetString("manufacturer")
			query, _ := cmd.Flags().GetString("query")
			vehicles := svc.Search(cmd.Context(), core.VehicleFilter{Manufacturer: manufacturer, Query: query})
			if wantJSON(cmd) {
				return printJSON(cmd, nonNil(vehicles))
			}
			rows := [][]string{{"ID", "MANUFACTURER", "MODEL", "NATIONAL", "LOCAL", "SLUG"}}
			for _, v := range vehicles {
				rows = append(rows, []string{
					v.ID, v.Manufacturer, v.Model,
					fmt.Sprint(v.NationalSubsidy), fmt.Sprint(v.LocalSubsidy),
					core.VehicleSlug(v.Model),
				})
			}
			return printTable(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().String("manufacturer", "", "Only this manufacturer")
	cmd.Flags().StringP("query", "q", "", "Case-insensitive search over manufacturer and model")
	cmd.Flags().Bool("by-manufacturer", false, "Group the listing by manufacturer")
	return cmd
}

func (c *CLI) newManufacturersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manufacturers",
		Short: "List manufacturers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			names := svc.Manufacturers(cmd.Context())
			if wantJSON(cmd) {
				return printJSON(cmd, nonNil(names))
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the dataset was loaded from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			st := svc.Status(cmd.Context())
			if wantJSON(cmd) {
				return printJSON(cmd, st)
			}
			return printTable(cmd.OutOrStdout(), [][]string{
				{"source", st.Source},
				{"load id", st.LoadID},
				{"vehicles", fmt.Sprint(st.Vehicles)},
				{"regions", fmt.Sprint(st.Regions)},
				{"manufacturers", fmt.Sprint(st.Manufacturers)},
				{"overrides", fmt.Sprint(st.Overrides)},
				{"updated", st.Metadata.LastUpdated},
			})
		},
	}
}

func printCalculation(w io.Writer, calc core.Calculation) error {
	res := calc.Result
	rows := [][]string{
		{"vehicle", calc.Resolution.VehicleID},
		{"region", calc.Resolution.Region},
		{"price", manwon(res.Price)},
		{"rate", fmt.Sprintf("%.0f%% (%s)", res.SubsidyRate*100, res.Tier)},
		{"national", manwon(res.NationalSubsidy)},
		{"local", fmt.Sprintf("%s (%s, before rate %s)", manwon(res.LocalSubsidy), calc.Resolution.Match, manwon(res.OriginalLocal))},
		{"total", manwon(res.TotalSubsidy)},
	}
	if res.Tax != nil {
		rows = append(rows,
			[]string{"tax", fmt.Sprintf("%s - %s = %s", manwon(res.Tax.BaseTax), manwon(res.Tax.Reduction), manwon(res.Tax.FinalTax))},
		)
	}
	if res.FinalPrice != nil {
		rows = append(rows, []string{"final price", manwon(*res.FinalPrice)})
	}
	if calc.Vehicle == nil {
		rows = append(rows, []string{"note", "vehicle not in dataset, national subsidy is 0"})
	}
	return printTable(w, rows)
}

func printTable(w io.Writer, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func manwon(n int) string {
	return fmt.Sprintf("%d만원", n)
}
