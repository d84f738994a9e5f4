package cmd

import (
	"log"

	ansi "github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const (
	flagScanMin  = "min"
	flagScanMax  = "max"
	flagScanFull = "full"
)

func init() {
	scanCmd.Flags().Uint8(flagScanMin, 0, "lowest node id to probe")
	scanCmd.Flags().Uint8(flagScanMax, 127, "highest node id to probe")
	scanCmd.Flags().Bool(flagScanFull, false, "probe the full range instead of the quick subset")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Probe the bus for nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cfg, err := connectManager(cmd)
		if err != nil {
			return err
		}
		defer m.Disconnect()

		// Command flags override the config file only when given.
		min, max, quick := uint8(cfg.Scan.Min), uint8(cfg.Scan.Max), cfg.Scan.Quick
		if cmd.Flags().Changed(flagScanMin) {
			min, _ = cmd.Flags().GetUint8(flagScanMin)
		}
		if cmd.Flags().Changed(flagScanMax) {
			max, _ = cmd.Flags().GetUint8(flagScanMax)
		}
		if cmd.Flags().Changed(flagScanFull) {
			full, _ := cmd.Flags().GetBool(flagScanFull)
			quick = !full
		}
		m.SetScanOptions(min, max, quick)

		var bar *progressbar.ProgressBar
		m.SetScanProgress(func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
					progressbar.OptionSetDescription("probing"),
				)
			}
			bar.Set(done)
		})

		nodes := m.Scan()
		if bar != nil {
			bar.Finish()
			log.Println()
		}
		if len(nodes) == 0 {
			log.Println("no nodes found")
			return nil
		}
		for _, n := range nodes {
			log.Printf("%3d  %s", n.ID, n.Name)
		}
		return nil
	},
}
