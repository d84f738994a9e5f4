package cmd

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/spf13/cobra"

	robstride "github.com/n2048-creative-technology/blender-robstride"
)

func init() {
	watchCmd.Flags().Duration("interval", 100*time.Millisecond, "poll interval")
	rootCmd.AddCommand(readposCmd)
	rootCmd.AddCommand(watchCmd)
}

// waitForPosition queues a read and polls the cache until the worker filled
// it or the deadline passes.
func waitForPosition(m *robstride.Manager, id uint8, timeout time.Duration) (float64, bool) {
	m.RequestRead(id)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if v, ok := m.CachedPosition(id); ok {
			return v, true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return 0, false
}

func formatPosition(rad float64) string {
	return fmt.Sprintf("mechpos=%.4f rad, angle=%.2f deg", rad, rad*360.0/(2.0*math.Pi))
}

var readposCmd = &cobra.Command{
	Use:   "readpos <node>",
	Short: "Read the mechanical position once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		m, _, err := connectManager(cmd)
		if err != nil {
			return err
		}
		defer m.Disconnect()
		v, ok := waitForPosition(m, id, 500*time.Millisecond)
		if !ok {
			return fmt.Errorf("node %d did not answer", id)
		}
		log.Printf("node %d: %s", id, formatPosition(v))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <node>",
	Short: "Continuously read the mechanical position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		m, _, err := connectManager(cmd)
		if err != nil {
			return err
		}
		defer m.Disconnect()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-ticker.C:
				m.RequestRead(id)
				if v, ok := m.CachedPosition(id); ok {
					log.Printf("node %d: %s", id, formatPosition(v))
				}
			}
		}
	},
}
