package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gopkg.in/yaml.v3"

	hbotel "github.com/MrEthical07/hostelbites/metrics/export/otel"
	"github.com/MrEthical07/hostelbites/metrics/export/prometheus"
)

func (c *cli) metricsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print this run's client counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := prometheus.NewExporter(c.app).Render()
			if out == "" {
				c.print(cmd, c.styles.Muted.Render("metrics are disabled"))
				return nil
			}
			switch format {
			case "prometheus":
				_, err := fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			case "otel":
				return c.printOTel(cmd)
			default:
				return fmt.Errorf("unknown format %q: use prometheus or otel", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "prometheus", "prometheus or otel")
	return cmd
}

// printOTel collects once through an OpenTelemetry manual reader and lists
// every non-zero data point.
func (c *cli) printOTel(cmd *cobra.Command) error {
	ctx := cmd.Context()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	exp, err := hbotel.NewExporter(provider.Meter("hostelbites-cli"), c.app)
	if err != nil {
		return err
	}
	defer func() { _ = exp.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	t := newTable("OpenTelemetry", "instrument", "kind", "value")
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if dp.Value != 0 {
						t.add(m.Name, "counter", strconv.FormatInt(dp.Value, 10))
					}
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if dp.Value != 0 {
						t.add(m.Name, "gauge", strconv.FormatInt(dp.Value, 10))
					}
				}
			}
		}
	}
	c.print(cmd, t.render(c.styles))
	return nil
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := yaml.Marshal(c.settings)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default settings to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(c.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", c.configPath)
			}
			if err := c.settings.Save(c.configPath); err != nil {
				return err
			}
			c.print(cmd, c.styles.OK.Render("Wrote "+c.configPath))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(show, initCmd)
	return cmd
}
