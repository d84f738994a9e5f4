package cmd

import (
	"log"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(moveCmd)
}

var moveCmd = &cobra.Command{
	Use:   "move <node> <degrees>",
	Short: "Send a target position in degrees",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNodeID(args[0])
		if err != nil {
			return err
		}
		degrees, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		radians := degrees * math.Pi / 180.0

		m, _, err := connectManager(cmd)
		if err != nil {
			return err
		}
		defer m.Disconnect()

		m.PostPosition(id, radians)
		log.Printf("node %d: target %.2f deg -> %f rad", id, degrees, radians)
		// Give the worker a couple of cycles to drain the write (the enable
		// sequence alone takes 20ms).
		time.Sleep(100 * time.Millisecond)
		return nil
	},
}
